package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tsukumogami/vsixsync/internal/hosttool"
	"github.com/tsukumogami/vsixsync/internal/release"
)

type fakeResolver struct {
	mu       sync.Mutex
	releases map[string]*release.Release
	errs     map[string]error
	calls    []string
	delay    time.Duration
	inFlight int
	maxSeen  int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{releases: map[string]*release.Release{}, errs: map[string]error{}}
}

func (f *fakeResolver) publish(pkg, version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases[pkg] = &release.Release{
		Package:  pkg,
		Version:  version,
		AssetURL: fmt.Sprintf("https://api.example.com/%s/%s.vsix", pkg, version),
	}
}

func (f *fakeResolver) ResolveLatest(ctx context.Context, name string) (*release.Release, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	rel, ok := f.releases[name]
	if !ok {
		return nil, &release.LookupError{Kind: release.KindNotFound, Package: name, Message: "no published release"}
	}
	copied := *rel
	return &copied, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{errs: map[string]error{}}
}

// body is what the fake serves for url.
func body(url string) []byte {
	return []byte("VSIX:" + url)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, sink io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	err := f.errs[url]
	f.mu.Unlock()

	if err != nil {
		// Leave a partial file behind, as an interrupted transfer would.
		_, _ = sink.Write([]byte("partial"))
		return err
	}
	_, werr := sink.Write(body(url))
	return werr
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeInstaller struct {
	mu        sync.Mutex
	installed []string
	listErr   error
	// exitCodes maps a package name or marketplace ID to an exit code.
	exitCodes map[string]int
	installs  []string
	byID      []string
	// registerOnSuccess adds successful installs to the list, like the editor.
	registerOnSuccess bool
}

func newFakeInstaller(installed ...string) *fakeInstaller {
	return &fakeInstaller{installed: installed, exitCodes: map[string]int{}}
}

func (f *fakeInstaller) ListExtensions(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.installed...), nil
}

// packageOf recovers the package name from "<pkg>-<version>.vsix".
func packageOf(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".vsix")
	if i := strings.LastIndex(base, "-"); i > 0 {
		return base[:i]
	}
	return base
}

func (f *fakeInstaller) Install(ctx context.Context, path string) hosttool.ExitStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs = append(f.installs, path)
	return f.finish(packageOf(path))
}

func (f *fakeInstaller) InstallByID(ctx context.Context, id string) hosttool.ExitStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID = append(f.byID, id)
	return f.finish(id)
}

func (f *fakeInstaller) finish(name string) hosttool.ExitStatus {
	if code, ok := f.exitCodes[name]; ok && code != 0 {
		if code < 0 {
			return hosttool.ExitStatus{Code: -1, Err: errors.New("executable file not found in $PATH")}
		}
		return hosttool.ExitStatus{Code: code, Stderr: "Failed Installing Extensions"}
	}
	if f.registerOnSuccess {
		f.installed = append(f.installed, "QuarksEcosystem."+name)
	}
	return hosttool.ExitStatus{}
}

func (f *fakeInstaller) Installs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.installs...)
}

func (f *fakeInstaller) ByID() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.byID...)
}

// failingStore wraps a store and fails every Set.
type failingStore struct {
	get func(string) (string, bool, error)
}

func (s failingStore) Get(key string) (string, bool, error) {
	if s.get != nil {
		return s.get(key)
	}
	return "", false, nil
}

func (failingStore) Set(string, string) error {
	return errors.New("database is locked")
}
