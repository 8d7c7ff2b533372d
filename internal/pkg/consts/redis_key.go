package consts

const (
	AccountLock = "lock:account:"
	JobLock     = "lock:job:"
)
