package ports

// Ingester defines the interface for message sources feeding the pipeline
type Ingester interface {
	// Start starts accepting messages. It returns once the source is running.
	Start() error

	// Stop stops the source and waits for in-flight messages
	Stop() error

	// Name returns the ingester name
	Name() string
}
