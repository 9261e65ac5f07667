package bnd_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/osgikit/bndbuild/internal/bnd"
	bnd_fs "github.com/osgikit/bndbuild/internal/fs"
)

func classRoot() fs.FS {
	return bnd_fs.MapFS(map[string]string{
		"org/example/Main.class":      "\xca\xfe\xba\xbe main",
		"org/example/util/Util.class": "\xca\xfe\xba\xbe util",
	})
}

func headersOf(t *testing.T, manifest []byte) map[string]string {
	t.Helper()
	headers := map[string]string{}
	// Undo continuation-line wrapping before splitting into headers.
	joined := strings.ReplaceAll(string(manifest), "\r\n ", "")
	for line := range strings.Lines(joined) {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			t.Fatalf("malformed manifest line %q", line)
		}
		headers[name] = value
	}
	return headers
}

func TestEngineManifestSynthesis(t *testing.T) {
	cases := []struct {
		note       string
		properties map[string]string
		expHeaders map[string]string
	}{
		{
			note: "computed export packages and framework headers",
			expHeaders: map[string]string{
				"Manifest-Version":       "1.0",
				"Bundle-ManifestVersion": "2",
				"Export-Package":         "org.example,org.example.util",
			},
		},
		{
			note: "explicit export overrides the computed closure",
			properties: map[string]string{
				"Export-Package": "org.example",
			},
			expHeaders: map[string]string{
				"Manifest-Version":       "1.0",
				"Bundle-ManifestVersion": "2",
				"Export-Package":         "org.example",
			},
		},
		{
			note: "bundle name defaults to symbolic name",
			properties: map[string]string{
				"Bundle-SymbolicName": "org.example.demo",
				"Bundle-Version":      "1.2.3",
			},
			expHeaders: map[string]string{
				"Manifest-Version":       "1.0",
				"Bundle-ManifestVersion": "2",
				"Bundle-SymbolicName":    "org.example.demo",
				"Bundle-Name":            "org.example.demo",
				"Bundle-Version":         "1.2.3",
				"Export-Package":         "org.example,org.example.util",
			},
		},
		{
			note: "unknown header keys pass through, directives do not",
			properties: map[string]string{
				"X-Custom-Header": "v",
				"-unknowndirective": "v",
			},
			expHeaders: map[string]string{
				"Manifest-Version":       "1.0",
				"Bundle-ManifestVersion": "2",
				"X-Custom-Header":        "v",
				"Export-Package":         "org.example,org.example.util",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			res, err := bnd.New().Build(t.Context(), bnd.Job{
				ClassRoots: []fs.FS{classRoot()},
				Properties: tc.properties,
			})
			if err != nil {
				t.Fatal(err)
			}
			for _, m := range res.Messages {
				t.Fatalf("unexpected message: %v", m)
			}
			if diff := cmp.Diff(tc.expHeaders, headersOf(t, res.Manifest)); diff != "" {
				t.Errorf("headers: (-want,+got)\n%s", diff)
			}
		})
	}
}

func TestEngineManifestHeaderOrder(t *testing.T) {
	res, err := bnd.New().Build(t.Context(), bnd.Job{
		ClassRoots: []fs.FS{classRoot()},
		Properties: map[string]string{
			"Bundle-SymbolicName": "org.example.demo",
			"Built-By":            "abc",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(res.Manifest), "\r\n"), "\r\n")
	if !strings.HasPrefix(lines[0], "Manifest-Version:") {
		t.Fatalf("expected Manifest-Version first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Bundle-ManifestVersion:") {
		t.Fatalf("expected Bundle-ManifestVersion second, got %q", lines[1])
	}
}

func TestEngineManifestLineWrapping(t *testing.T) {
	long := strings.Repeat("org.example.pkg", 20)
	res, err := bnd.New().Build(t.Context(), bnd.Job{
		Properties: map[string]string{"Export-Package": long},
	})
	if err != nil {
		t.Fatal(err)
	}

	for line := range strings.Lines(string(res.Manifest)) {
		if n := len(strings.TrimRight(line, "\r\n")); n > 72 {
			t.Fatalf("manifest line exceeds 72 bytes (%d): %q", n, line)
		}
	}
	if got := headersOf(t, res.Manifest)["Export-Package"]; got != long {
		t.Fatal("wrapped value does not round-trip")
	}
}

func TestEngineSourceEmbedding(t *testing.T) {
	sources := bnd_fs.MapFS(map[string]string{
		"org/example/Main.java":      "class Main {}",
		"org/example/util/Util.java": "class Util {}",
	})

	cases := []struct {
		note       string
		properties map[string]string
		embed      bool
		expPaths   []string
	}{
		{
			note:  "embed flag set",
			embed: true,
			expPaths: []string{
				"OSGI-OPT/src/org/example/Main.java",
				"OSGI-OPT/src/org/example/util/Util.java",
			},
		},
		{
			note:       "-sources directive with truthy value",
			properties: map[string]string{"-sources": "true"},
			expPaths: []string{
				"OSGI-OPT/src/org/example/Main.java",
				"OSGI-OPT/src/org/example/util/Util.java",
			},
		},
		{
			note:       "-sources directive with empty payload enables embedding",
			properties: map[string]string{"-sources": ""},
			expPaths: []string{
				"OSGI-OPT/src/org/example/Main.java",
				"OSGI-OPT/src/org/example/util/Util.java",
			},
		},
		{
			note:       "-sources directive with falsy value",
			properties: map[string]string{"-sources": "false"},
		},
		{
			note:       "directive sharing the -sources prefix is a distinct key",
			properties: map[string]string{"-sourcestamp": "true"},
		},
		{
			note: "flag off",
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			res, err := bnd.New().Build(t.Context(), bnd.Job{
				SourceRoots:  []fs.FS{sources},
				Properties:   tc.properties,
				EmbedSources: tc.embed,
			})
			if err != nil {
				t.Fatal(err)
			}

			var got []string
			for _, entry := range res.Entries {
				if strings.HasPrefix(entry.Path, "OSGI-OPT/src/") {
					got = append(got, entry.Path)
				}
			}
			if diff := cmp.Diff(tc.expPaths, got); diff != "" {
				t.Errorf("source entries: (-want,+got)\n%s", diff)
			}
		})
	}
}

func TestEngineActivatorCheck(t *testing.T) {
	t.Run("missing activator is reported", func(t *testing.T) {
		res, err := bnd.New().Build(t.Context(), bnd.Job{
			ClassRoots: []fs.FS{classRoot()},
			Properties: map[string]string{"Bundle-Activator": "org.foo.bar.NotExistingActivator"},
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(res.Messages) != 1 || res.Messages[0].Code != bnd.CodeActivatorNotFound {
			t.Fatalf("expected activator-not-found message, got %v", res.Messages)
		}
		if !strings.Contains(res.Messages[0].Text, "org.foo.bar.NotExistingActivator") {
			t.Fatalf("message does not name the class: %q", res.Messages[0].Text)
		}
		// The archive is still produced.
		if res.Manifest == nil || len(res.Entries) == 0 {
			t.Fatal("expected manifest and entries despite missing activator")
		}
	})

	t.Run("activator on class roots resolves", func(t *testing.T) {
		res, err := bnd.New().Build(t.Context(), bnd.Job{
			ClassRoots: []fs.FS{bnd_fs.MapFS(map[string]string{
				"org/example/Activator.class": "x",
			})},
			Properties: map[string]string{"Bundle-Activator": "org.example.Activator"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Messages) != 0 {
			t.Fatalf("expected no messages, got %v", res.Messages)
		}
	})

	t.Run("activator in classpath directory resolves", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "org", "example", "Activator.class")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}

		res, err := bnd.New().Build(t.Context(), bnd.Job{
			Classpath:  []string{dir},
			Properties: map[string]string{"Bundle-Activator": "org.example.Activator"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Messages) != 0 {
			t.Fatalf("expected no messages, got %v", res.Messages)
		}
	})
}

func TestEngineFatalShapedMessages(t *testing.T) {
	cases := []struct {
		note       string
		properties map[string]string
		expCode    bnd.Code
	}{
		{
			note:       "header name with spaces",
			properties: map[string]string{"bad key": "v"},
			expCode:    bnd.CodeInvalidHeaderName,
		},
		{
			note:       "malformed bundle version",
			properties: map[string]string{"Bundle-Version": "not.a.version!"},
			expCode:    bnd.CodeInvalidVersion,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			res, err := bnd.New().Build(t.Context(), bnd.Job{Properties: tc.properties})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Messages) != 1 || res.Messages[0].Code != tc.expCode {
				t.Fatalf("expected %s message, got %v", tc.expCode, res.Messages)
			}
			if res.Manifest != nil {
				t.Fatal("manifest synthesis must not proceed with malformed instructions")
			}
		})
	}
}

func TestEngineTrace(t *testing.T) {
	res, err := bnd.New().Build(t.Context(), bnd.Job{
		ClassRoots: []fs.FS{classRoot()},
		Trace:      true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Trace) == 0 {
		t.Fatal("expected trace lines with tracing enabled")
	}
	if res.Trace[0] != "build" {
		t.Fatalf("expected first trace line %q, got %q", "build", res.Trace[0])
	}

	res, err = bnd.New().Build(t.Context(), bnd.Job{ClassRoots: []fs.FS{classRoot()}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trace) != 0 {
		t.Fatalf("expected no trace lines with tracing disabled, got %v", res.Trace)
	}
}

func TestEngineMissingRootPropagates(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-dir")
	_, err := bnd.New().Build(t.Context(), bnd.Job{
		ClassRoots: []fs.FS{os.DirFS(missing)},
	})
	if err == nil {
		t.Fatal("expected unreadable class root to fail the build")
	}
}

func TestEngineClasspathEntryMissing(t *testing.T) {
	res, err := bnd.New().Build(t.Context(), bnd.Job{
		Classpath: []string{filepath.Join(t.TempDir(), "no-such.jar")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Code != bnd.CodeClasspathEntryMissing {
		t.Fatalf("expected classpath-entry-missing message, got %v", res.Messages)
	}
	if res.Manifest == nil {
		t.Fatal("missing classpath entry must stay advisory-shaped")
	}
}
