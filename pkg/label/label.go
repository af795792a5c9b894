package label

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/bft-labs/opskit/pkg/errs"
)

// ValueType is the type of value a label carries.
type ValueType int

const (
	TypeString ValueType = iota
	TypeBool
	TypeInt64
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeInt64:
		return "int64"
	default:
		return "unknown"
	}
}

// Standard label keys registered in the default registry.
const (
	KeyHostname    = "hostname"
	KeyDatacenter  = "datacenter"
	KeyService     = "service"
	KeyEnvironment = "environment"
	KeyVersion     = "version"
	KeyRevision    = "revision"
	KeyPID         = "pid"
)

// Descriptor declares a label key and the type of its values.
type Descriptor struct {
	Key         string
	Type        ValueType
	Description string
}

var standard = []Descriptor{
	{KeyHostname, TypeString, "hostname of the host running the service"},
	{KeyDatacenter, TypeString, "datacenter where the machine is physically located"},
	{KeyService, TypeString, "name of the service"},
	{KeyEnvironment, TypeString, "environment, e.g. production, staging"},
	{KeyVersion, TypeString, "version of the monitored resource"},
	{KeyRevision, TypeString, "SCM revision of the service"},
	{KeyPID, TypeInt64, "process identifier of the service"},
}

// Registry maps label keys to descriptors. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]Descriptor)}
}

// NewStandardRegistry creates a registry holding the standard labels.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	for _, d := range standard {
		r.descs[d.Key] = d
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewStandardRegistry()
	})
	return defaultRegistry
}

// Register adds d. Re-registering a key fails with errs.ErrInvalid.
func (r *Registry) Register(d Descriptor) error {
	if d.Key == "" {
		return errs.Invalid("empty label key")
	}
	if d.Type < TypeString || d.Type > TypeInt64 {
		return errs.Invalid("unknown label type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.descs[d.Key]; ok {
		return fmt.Errorf("label %q: %w", d.Key, errs.Invalid("already registered"))
	}
	r.descs[d.Key] = d
	return nil
}

// Lookup returns the descriptor registered under key.
func (r *Registry) Lookup(key string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[key]
	return d, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.descs))
	for k := range r.descs {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

func (r *Registry) check(key string, want ValueType) error {
	d, ok := r.Lookup(key)
	if !ok {
		return fmt.Errorf("label %q: %w", key, errs.Invalid("not registered"))
	}
	if d.Type != want {
		return fmt.Errorf("label %q: %w", key, errs.Invalid("is "+d.Type.String()+", not "+want.String()))
	}
	return nil
}

// String builds a string label.
func (r *Registry) String(key, v string) (Value, error) {
	if err := r.check(key, TypeString); err != nil {
		return Value{}, err
	}
	return Value{key: key, typ: TypeString, s: v}, nil
}

// Bool builds a bool label.
func (r *Registry) Bool(key string, v bool) (Value, error) {
	if err := r.check(key, TypeBool); err != nil {
		return Value{}, err
	}
	return Value{key: key, typ: TypeBool, b: v}, nil
}

// Int64 builds an int64 label.
func (r *Registry) Int64(key string, v int64) (Value, error) {
	if err := r.check(key, TypeInt64); err != nil {
		return Value{}, err
	}
	return Value{key: key, typ: TypeInt64, i: v}, nil
}

// String builds a string label from the default registry.
func String(key, v string) (Value, error) { return Default().String(key, v) }

// Bool builds a bool label from the default registry.
func Bool(key string, v bool) (Value, error) { return Default().Bool(key, v) }

// Int64 builds an int64 label from the default registry.
func Int64(key string, v int64) (Value, error) { return Default().Int64(key, v) }

// Value is a validated label. The zero Value has no key and is ignored by consumers.
type Value struct {
	key string
	typ ValueType
	s   string
	b   bool
	i   int64
}

// Key returns the label key.
func (v Value) Key() string { return v.key }

// Type returns the value type.
func (v Value) Type() ValueType { return v.typ }

// IsZero reports whether v was never built.
func (v Value) IsZero() bool { return v.key == "" }

// Str returns the string value.
func (v Value) Str() string { return v.s }

// BoolValue returns the bool value.
func (v Value) BoolValue() bool { return v.b }

// Int64Value returns the int64 value.
func (v Value) Int64Value() int64 { return v.i }

// Any returns the value as string, bool or int64.
func (v Value) Any() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeInt64:
		return v.i
	default:
		return v.s
	}
}

// String renders the label as key=value.
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return v.key + "=" + strconv.FormatBool(v.b)
	case TypeInt64:
		return v.key + "=" + strconv.FormatInt(v.i, 10)
	default:
		return v.key + "=" + v.s
	}
}

// Process returns the hostname and pid labels of the running process plus
// service and environment when they are non-empty.
func Process(service, environment string) ([]Value, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	vals := make([]Value, 0, 4)
	add := func(v Value, err error) error {
		if err != nil {
			return err
		}
		vals = append(vals, v)
		return nil
	}

	if err := add(String(KeyHostname, host)); err != nil {
		return nil, err
	}
	if err := add(Int64(KeyPID, int64(os.Getpid()))); err != nil {
		return nil, err
	}
	if service != "" {
		if err := add(String(KeyService, service)); err != nil {
			return nil, err
		}
	}
	if environment != "" {
		if err := add(String(KeyEnvironment, environment)); err != nil {
			return nil, err
		}
	}
	return vals, nil
}
