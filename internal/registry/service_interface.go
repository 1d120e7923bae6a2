package registry

// Service is a long running component the service registry starts in
// registration order and stops in reverse.
type Service interface {
	Start() error
	Stop() error
}
