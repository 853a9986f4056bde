package cfg

type Cfg struct {
	// Scouting configuration
	Topic            string
	TopicDescription string
	Sources          []string
	Profile          string
	ProfilesDir      string
	LookbackHours    int
	MaxResults       int

	// Output configuration
	BriefsDir string
	Save      bool
	SavePosts bool
	FromFile  string

	// LLM API settings
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	MaxTokens  int

	// Archive / serve mode
	DBPath       string
	Serve        bool
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
