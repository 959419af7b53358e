package metrics

// Config labels every metric with the owning service.
type Config struct {
	ServiceName string
	Environment string
}
