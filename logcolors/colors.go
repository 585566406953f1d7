package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"

	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightRed     = "\033[91m"
)

// Cache-related log prefixes
const (
	LogCacheInit     = Blue + "[Cache:Init]" + Reset
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheBackup   = Blue + "[Cache:Backup]" + Reset
	LogCacheClear    = Blue + "[Cache:Clear]" + Reset
	LogCacheRestore  = Blue + "[Cache:Restore]" + Reset
	LogCacheMirror   = Blue + "[Cache:Mirror]" + Reset
	LogCacheLyrics   = Green + "[Cache:Lyrics]" + Reset
	LogCacheNegative = Cyan + "[Cache:Negative]" + Reset
)

// Resolution log prefixes
const (
	LogResolve     = Purple + "[Resolve]" + Reset
	LogFallback    = Cyan + "[Fallback]" + Reset
	LogTranslation = BrightCyan + "[Translation]" + Reset
	LogSearch      = Blue + "[Search]" + Reset
	LogMatch       = Green + "[Match]" + Reset
	LogSuccess     = Green + "[Success]" + Reset
	LogLyrics      = Blue + "[Lyrics]" + Reset
	LogTimeline    = Cyan + "[Timeline]" + Reset
	LogWarning     = Red + "[Warning]" + Reset
)

// Playback log prefixes
const (
	LogSync   = BrightGreen + "[Sync]" + Reset
	LogSeek   = Yellow + "[Seek]" + Reset
	LogPlayer = BrightBlue + "[Player]" + Reset
)

// Rate limiting and auth log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

var adapterColors = []string{
	Green, Blue, Purple, Cyan,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan,
}

// Adapter returns a colored "[Adapter:name]" prefix.
// The same adapter name always gets the same color.
func Adapter(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	color := adapterColors[hash%len(adapterColors)]
	return color + "[Adapter:" + name + "]" + Reset
}
