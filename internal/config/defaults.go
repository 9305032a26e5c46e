package config

const (
	defaultDownloadDir            = "~/Downloads"
	defaultStateDir               = "~/.local/share/bobbin"
	defaultLogDir                 = "~/.local/share/bobbin/logs"
	defaultAria2Binary            = "aria2c"
	defaultRPCPort                = 6800
	defaultRPCTimeoutSeconds      = 5
	defaultMaxConcurrentDownloads = 5
	defaultExtractorBinary        = "yt-dlp"
	defaultExtractorTimeout       = 30
	defaultQuality                = "best"
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultPollIntervalSeconds    = 5
	defaultMergeIntervalSeconds   = 5
	defaultSpawnSettleMillis      = 1500
	defaultRemovalSettleMillis    = 500
	defaultPostAddRefreshMillis   = 1500
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Qualities lists the accepted video quality selectors.
var Qualities = []string{"best", "1080p", "720p", "audio"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Aria2: Aria2{
			Binary:                 defaultAria2Binary,
			RPCPort:                defaultRPCPort,
			RPCTimeoutSeconds:      defaultRPCTimeoutSeconds,
			MaxConcurrentDownloads: defaultMaxConcurrentDownloads,
		},
		Extractor: Extractor{
			Binary:         defaultExtractorBinary,
			TimeoutSeconds: defaultExtractorTimeout,
			Quality:        defaultQuality,
		},
		Merge: Merge{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VerifyOutput:  true,
		},
		Supervisor: Supervisor{
			PollIntervalSeconds:  defaultPollIntervalSeconds,
			MergeIntervalSeconds: defaultMergeIntervalSeconds,
			SpawnSettleMillis:    defaultSpawnSettleMillis,
			RemovalSettleMillis:  defaultRemovalSettleMillis,
			PostAddRefreshMillis: defaultPostAddRefreshMillis,
			AutoStartDaemon:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
