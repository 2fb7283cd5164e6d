package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/tsukumogami/vsixsync/internal/notify"
	"github.com/tsukumogami/vsixsync/internal/release"
	"github.com/tsukumogami/vsixsync/internal/state"
)

type scenarioKeyType struct{}

var scenarioKey = scenarioKeyType{}

// scenario carries the fakes and the last report through one scenario.
type scenario struct {
	resolver  *fakeResolver
	fetcher   *fakeFetcher
	installer *fakeInstaller
	store     *state.MemoryStore
	notifier  *notify.Recorder
	dir       string
	report    *Report
	writes    int
}

func getScenario(ctx context.Context) *scenario {
	s, _ := ctx.Value(scenarioKey).(*scenario)
	return s
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			initializeScenario(sc, t.TempDir)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("reconcile feature tests failed")
	}
}

func initializeScenario(sc *godog.ScenarioContext, tempDir func() string) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s := &scenario{
			resolver:  newFakeResolver(),
			fetcher:   newFakeFetcher(),
			installer: newFakeInstaller(),
			store:     state.NewMemoryStore(nil),
			notifier:  &notify.Recorder{},
			dir:       filepath.Join(tempDir(), "downloads"),
		}
		return context.WithValue(ctx, scenarioKey, s), nil
	})

	sc.Step(`^the package "([^"]*)" has latest release "([^"]*)"$`, thePackageHasLatestRelease)
	sc.Step(`^the package "([^"]*)" has a release without assets$`, thePackageHasAReleaseWithoutAssets)
	sc.Step(`^the recorded version of "([^"]*)" is "([^"]*)"$`, theRecordedVersionIs)
	sc.Step(`^the editor lists "([^"]*)"$`, theEditorLists)
	sc.Step(`^the editor registers installed extensions$`, theEditorRegistersInstalledExtensions)
	sc.Step(`^the editor exits with code (\d+) when installing "([^"]*)"$`, theEditorExitsWithCode)
	sc.Step(`^the reconciler runs for "([^"]*)"$`, theReconcilerRunsFor)
	sc.Step(`^the outcome for "([^"]*)" is "([^"]*)"$`, theOutcomeIs)
	sc.Step(`^the recorded version of "([^"]*)" becomes "([^"]*)"$`, theRecordedVersionBecomes)
	sc.Step(`^no version is recorded during the run$`, noVersionIsRecorded)
	sc.Step(`^the editor installed "([^"]*)"$`, theEditorInstalled)
	sc.Step(`^the editor was asked to install (\d+) times?$`, theEditorWasAskedToInstall)
	sc.Step(`^a reload prompt is shown$`, aReloadPromptIsShown)
	sc.Step(`^no reload prompt is shown$`, noReloadPromptIsShown)
	sc.Step(`^an error notice mentions "([^"]*)"$`, anErrorNoticeMentions)
	sc.Step(`^nothing was downloaded$`, nothingWasDownloaded)
}

func thePackageHasLatestRelease(ctx context.Context, name, version string) error {
	getScenario(ctx).resolver.publish(name, version)
	return nil
}

func thePackageHasAReleaseWithoutAssets(ctx context.Context, name string) error {
	s := getScenario(ctx)
	s.resolver.errs[name] = &release.LookupError{
		Kind: release.KindNoAssets, Package: name, Message: "release has no assets",
	}
	return nil
}

func theRecordedVersionIs(ctx context.Context, name, version string) error {
	s := getScenario(ctx)
	s.store = state.NewMemoryStore(map[string]string{state.Key(name): version})
	return nil
}

func theEditorLists(ctx context.Context, id string) error {
	s := getScenario(ctx)
	s.installer.installed = append(s.installer.installed, id)
	return nil
}

func theEditorRegistersInstalledExtensions(ctx context.Context) error {
	getScenario(ctx).installer.registerOnSuccess = true
	return nil
}

func theEditorExitsWithCode(ctx context.Context, code int, name string) error {
	getScenario(ctx).installer.exitCodes[name] = code
	return nil
}

func theReconcilerRunsFor(ctx context.Context, list string) error {
	s := getScenario(ctx)
	r := New(Deps{
		Resolver:  s.resolver,
		Fetcher:   s.fetcher,
		Installer: s.installer,
		Store:     s.store,
		Notifier:  s.notifier,
		Reloader:  s.notifier,
	}, WithDownloadDir(s.dir))

	before := s.store.Writes()
	s.report = r.Run(ctx, strings.Split(list, ","))
	s.writes = s.store.Writes() - before
	return nil
}

func theOutcomeIs(ctx context.Context, name, want string) error {
	res, ok := getScenario(ctx).report.Result(name)
	if !ok {
		return fmt.Errorf("no result for %s", name)
	}
	if string(res.Outcome) != want {
		return fmt.Errorf("outcome for %s = %s, want %s (err: %v)", name, res.Outcome, want, res.Err)
	}
	return nil
}

func theRecordedVersionBecomes(ctx context.Context, name, want string) error {
	got, ok, err := getScenario(ctx).store.Get(state.Key(name))
	if err != nil {
		return err
	}
	if !ok || got != want {
		return fmt.Errorf("recorded version of %s = %q (present=%v), want %q", name, got, ok, want)
	}
	return nil
}

func noVersionIsRecorded(ctx context.Context) error {
	if n := getScenario(ctx).writes; n != 0 {
		return fmt.Errorf("expected no state writes, got %d", n)
	}
	return nil
}

func theEditorInstalled(ctx context.Context, file string) error {
	for _, path := range getScenario(ctx).installer.Installs() {
		if filepath.Base(path) == file {
			return nil
		}
	}
	return fmt.Errorf("editor never installed %s", file)
}

func theEditorWasAskedToInstall(ctx context.Context, n int) error {
	if got := len(getScenario(ctx).installer.Installs()); got != n {
		return fmt.Errorf("editor asked to install %d times, want %d", got, n)
	}
	return nil
}

func aReloadPromptIsShown(ctx context.Context) error {
	if len(getScenario(ctx).notifier.Prompts()) == 0 {
		return fmt.Errorf("no reload prompt")
	}
	return nil
}

func noReloadPromptIsShown(ctx context.Context) error {
	if p := getScenario(ctx).notifier.Prompts(); len(p) != 0 {
		return fmt.Errorf("unexpected prompts: %v", p)
	}
	return nil
}

func anErrorNoticeMentions(ctx context.Context, text string) error {
	for _, msg := range getScenario(ctx).notifier.Errors() {
		if strings.Contains(msg, text) {
			return nil
		}
	}
	return fmt.Errorf("no error notice mentions %q; got %v", text, getScenario(ctx).notifier.Errors())
}

func nothingWasDownloaded(ctx context.Context) error {
	if calls := getScenario(ctx).fetcher.Calls(); len(calls) != 0 {
		return fmt.Errorf("unexpected downloads: %v", calls)
	}
	return nil
}
