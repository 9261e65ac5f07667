// Package bndbuild builds OSGi bundle archives from compiled class files,
// resources and manifest instructions.
//
// The builder resolves manifest headers from two layers (plain manifest
// attributes below, explicit instructions above), runs the bundle build
// engine and writes the archive as a zip stream. Diagnostics reported by the
// engine are classified: advisory diagnostics are informational and the
// archive is still produced, fatal diagnostics abort the build before any
// output is written.
//
// # Basic Usage
//
// Point the builder at the compiled output and build:
//
//	import "github.com/osgikit/bndbuild/pkg/bndbuild"
//
//	var out bytes.Buffer
//	result, err := bndbuild.New().
//		WithClasses(bndbuild.Dir{Path: "build/classes"}).
//		WithResources(bndbuild.Dir{Path: "src/main/resources"}).
//		WithAttribute("Bundle-SymbolicName", "org.example.app").
//		WithInstruction("Bundle-Version", "1.0.0").
//		WithOutput(&out).
//		Build(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, d := range result.Advisory {
//		log.Println(d.Message)
//	}
//
// # Layer Resolution
//
// Attributes and instructions feed the same manifest but resolve
// differently. Repeated attributes keep the first value seen; repeated
// instructions accumulate their fragments in order and flatten to a single
// comma-joined value. When both layers define a header, the instruction
// layer wins:
//
//	b := bndbuild.New().
//		WithAttribute("Built-By", "abc").    // shadowed below
//		WithInstruction("Built-By", "xyz").  // resolves to "xyz"
//		WithInstruction("Export-Package", "org.example.api").
//		WithInstruction("Export-Package", "org.example.impl")
//		// Export-Package resolves to "org.example.api,org.example.impl"
//
// # Source Embedding
//
// With embed sources enabled, files from the source roots are copied into
// the archive under OSGI-OPT/src, mirroring their package layout:
//
//	b := bndbuild.New().
//		WithClasses(bndbuild.Dir{Path: "build/classes"}).
//		WithSources(bndbuild.Dir{Path: "src/main/java"}).
//		WithEmbedSources(true)
//
// # Diagnostics
//
// Build returns *FatalBuildError when the engine reports a fatal
// diagnostic, for example an invalid header name or a malformed version.
// The partial result is still returned so callers can inspect the
// diagnostics:
//
//	result, err := b.Build(ctx)
//	var fatal *bndbuild.FatalBuildError
//	if errors.As(err, &fatal) {
//		for _, d := range fatal.Diagnostics {
//			log.Println(d.Code, d.Message)
//		}
//	}
package bndbuild
