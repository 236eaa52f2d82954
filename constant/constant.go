package constant

type JobStatus string

const (
	JobStatusUploading   JobStatus = "uploading"
	JobStatusUploaded    JobStatus = "uploaded"
	JobStatusQueued      JobStatus = "queued"
	JobStatusRecognizing JobStatus = "recognizing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCanceled    JobStatus = "canceled"
)

func (s JobStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Compute device preferences accepted at session init.
const (
	DevicePreferenceCPU  = "cpu"
	DevicePreferenceGPU  = "gpu"
	DevicePreferenceAuto = "auto"
)

// Resolved compute devices handed to the recognizer engine.
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda:0"
)

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
