// Package opskit provides an embeddable service runtime built from the
// lifecycle, logpipe and health packages.
//
// A [Service] owns a lifecycle state machine, an asynchronous log pipeline and
// a background worker that drains the pipeline. Plugins extend the service and
// follow its Start and Stop calls.
//
// # Basic Usage
//
//	svc, err := opskit.New(opskit.Config{Name: "api", Level: "info"},
//	    opskit.WithLogger(logger),
//	    opskit.WithRegisterer(prometheus.DefaultRegisterer),
//	)
//	if err != nil {
//	    return err
//	}
//
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	svc.Pipeline().Infof("listening on %s", addr)
//
// # Lifecycle States
//
// A Service moves through new, starting, running, stopping and terminated.
// A plugin failure during Start or a shutdown timeout during Stop moves it to
// failed. Use [Service.Status] to query the current state and [WithObserver]
// to be notified of transitions.
//
// # Plugins
//
// Plugins implement [Plugin]. They are initialized in registration order and
// shut down in reverse order:
//
//	import "github.com/bft-labs/opskit/plugins/configwatcher"
//
//	svc, err := opskit.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: "/etc/api/log.toml"}),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and [CompatibilityMatrix]
// to check minimum compatible versions. See version.go for details.
package opskit
