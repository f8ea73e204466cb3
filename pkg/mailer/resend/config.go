package resend

type Config struct {
	APIKey string `env:"RESEND_API_KEY"`
	// Region where new sending domains are provisioned.
	Region string `env:"RESEND_REGION" envDefault:"us-east-1"`
}
