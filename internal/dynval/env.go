package dynval

import "time"

// Env is the read-only execution context tags are resolved against. It is
// supplied by the host for every execution.
type Env interface {
	ViewerID() int64
	RecordID() int64
	RecordOwnerID() int64
	Now() time.Time
	RequestParam(key string) string
	ViewerAttribute(key string) string
	RecordTerms(taxonomy string) []int64
	TaxonomyExists(name string) bool
}

// StaticEnv is an Env over fixed values.
type StaticEnv struct {
	Viewer     int64
	Record     int64
	Owner      int64
	Clock      time.Time
	Params     map[string]string
	Attributes map[string]string
	Terms      map[string][]int64
}

func (e StaticEnv) ViewerID() int64      { return e.Viewer }
func (e StaticEnv) RecordID() int64      { return e.Record }
func (e StaticEnv) RecordOwnerID() int64 { return e.Owner }

func (e StaticEnv) Now() time.Time {
	if e.Clock.IsZero() {
		return time.Now()
	}
	return e.Clock
}

func (e StaticEnv) RequestParam(key string) string    { return e.Params[key] }
func (e StaticEnv) ViewerAttribute(key string) string { return e.Attributes[key] }
func (e StaticEnv) RecordTerms(taxonomy string) []int64 {
	return e.Terms[taxonomy]
}

func (e StaticEnv) TaxonomyExists(name string) bool {
	_, ok := e.Terms[name]
	return ok
}
