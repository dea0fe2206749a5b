// Package classpath is the external-interface seam for classpath
// resolution (spec §4.7, C7). The spec explicitly scopes actual
// classpath construction (Gradle/Maven/Jenkins-plugin resolution) out
// of this engine (spec Non-goals: "resolving build-tool classpaths");
// this package only defines the interface the rest of the engine
// depends on, plus a default that resolves nothing, so the engine
// compiles and runs standalone until a host process supplies a real
// resolver.
package classpath

import "context"

// ClassInfo is the minimal shape an external resolver reports back for
// one resolvable class/interface/trait name (spec §3 ExternalType).
type ClassInfo struct {
	QualifiedName string
	JarPath       string
}

// Resolver looks up external types by qualified or simple name. Host
// processes (e.g. a build-tool integration) implement this against
// their own classpath model; the engine itself never constructs a
// classpath.
type Resolver interface {
	// Resolve returns class info for name, or ok=false if name is not
	// on the classpath this Resolver knows about.
	Resolve(ctx context.Context, name string) (ClassInfo, bool)

	// Classpath returns the flat list of jar/class-directory entries
	// currently in effect, for diagnostics and status reporting.
	Classpath(ctx context.Context) []string
}

// NoopResolver resolves nothing and reports an empty classpath. It is
// the engine's default until a host process wires in a real Resolver.
type NoopResolver struct{}

// Resolve always reports name as unresolved.
func (NoopResolver) Resolve(context.Context, string) (ClassInfo, bool) { return ClassInfo{}, false }

// Classpath always reports no entries.
func (NoopResolver) Classpath(context.Context) []string { return nil }
