package app

const (
	Name            = "gatewatch"
	ConfigFilename  = "config.json"
	SessionFilename = "session.json"
	DBFilename      = "history.db"
	LogFilename     = "app.log"
)
