package driven

// ConfigStore provides persistent key-value configuration with
// dot-notation keys (e.g. "catalog.search_url").
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat(key string) float64
	Set(key string, value any) error
	Save() error
	Load() error
	Path() string
}
