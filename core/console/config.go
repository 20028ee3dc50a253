package console

// Config holds configuration for the remote management console.
type Config struct {
	// URL is the console base URL. https:// is assumed when no scheme is given.
	URL string `mapstructure:"url" default:""`
	// Username is the developer login.
	Username string `mapstructure:"username" default:""`
	// Password is the developer password.
	Password string `mapstructure:"password" default:""`
	// TimeoutSeconds bounds every HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Concurrency bounds the permission fetches running at once.
	Concurrency int `mapstructure:"concurrency" default:"10"`
	// Verbose logs every request and response.
	Verbose bool `mapstructure:"verbose" default:"false"`
}
