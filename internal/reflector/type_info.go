// Package reflector names Go types for logs and metric labels, caching the
// result per type since the same message types are named over and over.
package reflector

import (
	"reflect"
	"sync"
)

// maxCacheSize bounds the cache. Programs rarely have this many message
// types; when they do the cache simply starts over.
const maxCacheSize = 1024

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

// TypeInfo describes a named type.
type TypeInfo struct {
	Name string // "pkg/path.TypeName"
	Type reflect.Type
}

// TypeInfoOf returns TypeInfo for the dynamic type of x.
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

// TypeInfoFor returns TypeInfo for type parameter T.
func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

// TypeInfoForType returns TypeInfo for t. Pointers are described by their
// element type, so *Ping and Ping share a name. Unnamed types fall back to
// their literal spelling.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{Name: "<nil>"}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{Type: t, Name: t.String()}
	if t.Name() != "" && t.PkgPath() != "" {
		ti.Name = t.PkgPath() + "." + t.Name()
	}

	muCache.Lock()
	defer muCache.Unlock()
	if len(cache) >= maxCacheSize {
		cache = make(map[reflect.Type]TypeInfo)
	}
	cache[t] = ti
	return ti
}
