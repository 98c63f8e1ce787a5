package registry

// Service is the interface every relay service implements.
type Service interface {
	Start() error
	Stop() error
}
