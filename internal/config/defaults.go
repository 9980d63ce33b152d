package config

const (
	defaultStateDir          = "~/.local/share/infobeamer-cms"
	defaultLogDir            = "~/.local/share/infobeamer-cms/logs"
	defaultInfobeamerBaseURL = "https://info-beamer.com/api/v1"
	defaultInfobeamerTimeout = 5
	defaultCacheTTLSeconds   = 60
	defaultSlideTime         = 10
	defaultFadeTime          = 0.5
	defaultMaxUploads        = 5
	defaultStateReportMinute = 7
	defaultNotifyTimeout     = 10
	defaultMQTTPort          = 1883
	defaultMQTTTopic         = "/voc/alert"
	defaultMetricsListen     = "127.0.0.1:9123"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Infobeamer: Infobeamer{
			BaseURL:        defaultInfobeamerBaseURL,
			TimeoutSeconds: defaultInfobeamerTimeout,
		},
		Cache: Cache{
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Slideshow: Slideshow{
			SlideTime: defaultSlideTime,
			FadeTime:  defaultFadeTime,
		},
		Moderation: Moderation{
			MaxUploads: defaultMaxUploads,
		},
		Sync: Sync{
			StateReportMinute: defaultStateReportMinute,
		},
		Notifications: Notifications{
			MQTTPort:       defaultMQTTPort,
			MQTTTopic:      defaultMQTTTopic,
			RequestTimeout: defaultNotifyTimeout,
		},
		Metrics: Metrics{
			Listen: defaultMetricsListen,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
