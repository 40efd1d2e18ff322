package cfg

type Cfg struct {
	// Storage configuration
	DataDir string
	DBPath  string

	// Curation configuration
	SourcesFile    string
	MaxCacheSize   int
	MinConfidence  float64
	MaxNewsPerDay  int
	PerSourceLimit int
	FetchTimeout   int
	SourceRate     float64

	// Delivery configuration
	DeliveryHour string
	WebhookURL   string

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
