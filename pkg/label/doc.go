// Package label keeps a registry of typed label descriptors and builds
// validated label values from them.
//
// A label is a key with a fixed value type (string, bool or int64). Values can
// only be built for registered keys and only with the registered type, so a
// misspelled key or a wrong type is caught where the label is created rather
// than where it is consumed.
//
// # Usage
//
//	host, err := label.String(label.KeyHostname, "node-1")
//	if err != nil {
//	    return err
//	}
//
//	reg := label.NewRegistry()
//	_ = reg.Register(label.Descriptor{Key: "shard", Type: label.TypeInt64})
//	shard, _ := reg.Int64("shard", 3)
//
// The process-wide registry returned by [Default] is pre-loaded with the
// standard service labels: hostname, datacenter, service, environment,
// version, revision and pid.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package label
