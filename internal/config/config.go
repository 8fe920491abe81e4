package config

type Config interface {
	EnvConfig
	CorsConfig
	BankConfig
	AssessmentConfig
	SecurityConfig
}

type mainConfig struct {
	EnvVars
	Cors
	Bank
	Assessment
	Security
}

func New() Config {
	return mainConfig{}
}
