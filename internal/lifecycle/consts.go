package lifecycle

const (
	EnvNameNotifySocket string = "NOTIFY_SOCKET"

	stateReady     string = "READY=1"
	stateReloading string = "RELOADING=1"
	stateStopping  string = "STOPPING=1"
)
