// Package pkg provides the core libraries for reqscan, a generator of pip
// requirements manifests from Python import statements.
//
// # Overview
//
// reqscan reads a Python source tree, keeps the imports that name
// third-party distributions and writes them as a requirements.txt. The pkg
// directory is organized by pipeline stage:
//
//  1. [source] - enumerate source files under a root
//  2. [imports] - extract top-level import names from one file
//  3. [stdlib] - classify standard-library modules per Python version
//  4. [project] - identify modules that belong to the project itself
//  5. [alias] - map import names to distribution names
//  6. [installed] - read installed versions from site-packages
//  7. [compat] - probe packages against a target Python version
//  8. [manifest] - render and atomically write the manifest
//
// [pipeline] runs the stages in order with bounded worker pools. Supporting
// packages: [cache] (memory, file and Redis backends), [config]
// (pyproject.toml settings), [interp] (interpreter inspection),
// [integrations] (PyPI client), [httputil] (retries), [errors] (error
// codes) and [observability] (instrumentation hooks).
//
// # Architecture
//
// The typical data flow through reqscan:
//
//	Source tree
//	     ↓
//	[source] + [imports] (parallel parse, cached by content)
//	     ↓
//	[stdlib] + [project] (drop standard and internal names)
//	     ↓
//	[alias] + [installed] (package identifiers and versions)
//	     ↓
//	[compat] (parallel probes with timeouts)
//	     ↓
//	[manifest] (requirements.txt)
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/reqscan/pkg/pipeline"
//	    "github.com/matzehuels/reqscan/pkg/stdlib"
//	)
//
//	std, _ := stdlib.New(stdlib.Options{Version: "3.12"})
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Root:   ".",
//	    Python: "3.12",
//	    Stdlib: std,
//	})
//	os.Stdout.Write(result.Manifest)
//
// [source]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/source
// [imports]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/imports
// [stdlib]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/stdlib
// [project]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/project
// [alias]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/alias
// [installed]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/installed
// [compat]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/compat
// [manifest]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/manifest
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/config
// [interp]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/interp
// [integrations]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/integrations
// [httputil]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/reqscan/pkg/observability
package pkg
