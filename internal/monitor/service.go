package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/fimon/internal/discovery"
	"github.com/temirov/fimon/internal/integrity"
	"github.com/temirov/fimon/internal/probe"
	"github.com/temirov/fimon/internal/report"
	"github.com/temirov/fimon/internal/store"
)

const (
	authorizationPromptConstant    = "File integrity checked, changes found, are these authorized? [y/N] "
	noChangesMessageConstant       = "File integrity checked, no changes found.\n"
	changesAuthorizedTemplate      = "Changes authorized; baseline updated (%d applied).\n"
	changesDeclinedTemplate        = "Changes not authorized; check %s for investigation.\n"
	reconcileFaultTemplate         = "Could not apply %v\n"
	unevaluatedFileTemplate        = "Could not evaluate %s: %v\n"
	bootstrapSkippedTemplate       = "Skipped %s: %v\n"
	bootstrapCompletedTemplate     = "Baseline recorded with %d files.\n"
	storeOpenErrorTemplate         = "unable to open stores: %w"
	walkerErrorTemplate            = "unable to configure discovery: %w"
	baselineLoadErrorTemplate      = "unable to load baseline: %w"
	scanErrorTemplate              = "integrity scan failed: %w"
	renderErrorTemplate            = "unable to render report: %w"
	reportAppendErrorTemplate      = "unable to write investigation report: %w"
	reportRemoveErrorTemplate      = "unable to remove investigation report: %w"
	promptErrorTemplate            = "unable to read authorization: %w"
	reconcileErrorTemplate         = "unable to update baseline: %w"
	bootstrapErrorTemplate         = "unable to record baseline: %w"
	pathsFileReadErrorTemplate     = "unable to read paths file %s: %w"
	pathsFileParseErrorTemplate    = "unable to parse paths file %s: %w"
	storeCloseFaultMessageConstant = "store close failed"
	reportRemovedMessageConstant   = "investigation report removed"
	checkCompletedMessageConstant  = "integrity check completed"
	logFieldAuthorizedConstant     = "authorized"
	logFieldEventCountConstant     = "events"
	logFieldReportConstant         = "report"
)

// ServiceDependencies carries the collaborators shared by every monitor operation.
type ServiceDependencies struct {
	Prober      integrity.Prober
	Clock       integrity.Clock
	Output      io.Writer
	ErrorOutput io.Writer
}

// Service executes the monitor operations.
type Service struct {
	logger      *zap.Logger
	prober      integrity.Prober
	clock       integrity.Clock
	output      io.Writer
	errorOutput io.Writer
}

// CheckOptions configures one integrity check.
type CheckOptions struct {
	Configuration Configuration
	Prompter      ConfirmationPrompter
	Format        report.Format
	Styled        bool
}

// CheckOutcome summarises one integrity check.
type CheckOutcome struct {
	Scan           integrity.ScanResult
	Reconciliation integrity.ReconcileResult
	Authorized     bool
}

// InitOptions configures baseline bootstrap.
type InitOptions struct {
	Configuration Configuration
	Paths         []string
	Force         bool
}

// BaselineOptions configures baseline display.
type BaselineOptions struct {
	Configuration Configuration
	Format        report.Format
}

type environment struct {
	stores     store.Stores
	guard      *integrity.Guard
	walker     *discovery.FilesystemWalker
	reportFile *report.File
}

// NewService constructs a Service. Missing dependencies fall back to the system probe and clock.
func NewService(logger *zap.Logger, dependencies ServiceDependencies) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	prober := dependencies.Prober
	if prober == nil {
		prober = probe.NewFileProbe(probe.SystemOwnerResolver{})
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = integrity.SystemClock{}
	}
	output := dependencies.Output
	if output == nil {
		output = io.Discard
	}
	errorOutput := dependencies.ErrorOutput
	if errorOutput == nil {
		errorOutput = io.Discard
	}
	return &Service{
		logger:      logger,
		prober:      prober,
		clock:       clock,
		output:      output,
		errorOutput: errorOutput,
	}
}

// Check scans the monitored root against the baseline, reports drift, asks for
// authorization and reconciles the baseline with the answer.
func (service *Service) Check(executionContext context.Context, options CheckOptions) (CheckOutcome, error) {
	configuration := options.Configuration.sanitize()
	if len(options.Format) == 0 {
		options.Format = report.FormatText
	}
	runtimeEnvironment, environmentError := service.openEnvironment(configuration)
	if environmentError != nil {
		return CheckOutcome{}, environmentError
	}
	defer service.closeEnvironment(runtimeEnvironment)

	baseline, loadError := runtimeEnvironment.stores.Baseline.LoadBaseline()
	if errors.Is(loadError, store.ErrBaselineNotFound) {
		return CheckOutcome{}, ErrBaselineMissing
	}
	if loadError != nil {
		return CheckOutcome{}, fmt.Errorf(baselineLoadErrorTemplate, loadError)
	}

	matchStrategy, matchError := integrity.ParseMatchStrategy(configuration.MatchBy)
	if matchError != nil {
		return CheckOutcome{}, matchError
	}

	scanner, scannerError := integrity.NewScanner(
		service.logger,
		service.prober,
		runtimeEnvironment.stores.Snapshots,
		runtimeEnvironment.walker,
		service.clock,
		integrity.ScannerOptions{
			Workers:              configuration.Workers,
			Timeout:              configuration.Timeout,
			SplitMetadataChanges: configuration.SplitMetadataChanges,
			Guard:                runtimeEnvironment.guard,
		},
	)
	if scannerError != nil {
		return CheckOutcome{}, scannerError
	}

	scanResult, scanError := scanner.Scan(executionContext, baseline, configuration.Root)
	if scanError != nil {
		return CheckOutcome{}, fmt.Errorf(scanErrorTemplate, scanError)
	}
	outcome := CheckOutcome{Scan: scanResult}
	statusOutput := service.statusWriter(options.Format)

	if !scanResult.HasChanges() {
		if options.Format != report.FormatText {
			if renderError := service.render(options, scanResult); renderError != nil {
				return outcome, renderError
			}
		} else {
			service.writeUnevaluated(scanResult.Unevaluated)
		}
		fmt.Fprint(statusOutput, noChangesMessageConstant)
		return outcome, nil
	}

	if renderError := service.render(options, scanResult); renderError != nil {
		return outcome, renderError
	}
	if appendError := runtimeEnvironment.reportFile.Append(scanResult); appendError != nil {
		return outcome, fmt.Errorf(reportAppendErrorTemplate, appendError)
	}

	prompter := options.Prompter
	if configuration.AssumeYes {
		prompter = assumedConfirmationPrompter{}
	}
	if prompter == nil {
		prompter = declinedConfirmationPrompter{}
	}
	authorized, promptError := prompter.Confirm(authorizationPromptConstant)
	if promptError != nil {
		return outcome, fmt.Errorf(promptErrorTemplate, promptError)
	}
	outcome.Authorized = authorized

	reconciler, reconcilerError := integrity.NewReconciler(
		service.logger,
		service.prober,
		runtimeEnvironment.stores.Snapshots,
		runtimeEnvironment.stores.Baseline,
		integrity.ReconcilerOptions{MatchBy: matchStrategy, Guard: runtimeEnvironment.guard},
	)
	if reconcilerError != nil {
		return outcome, reconcilerError
	}

	reconcileResult, reconcileError := reconciler.Reconcile(executionContext, baseline, scanResult.Events, authorized)
	if reconcileError != nil {
		return outcome, fmt.Errorf(reconcileErrorTemplate, reconcileError)
	}
	outcome.Reconciliation = reconcileResult

	service.logger.Info(
		checkCompletedMessageConstant,
		zap.Int(logFieldEventCountConstant, len(scanResult.Events)),
		zap.Bool(logFieldAuthorizedConstant, authorized),
	)

	if !authorized {
		fmt.Fprintf(statusOutput, changesDeclinedTemplate, runtimeEnvironment.reportFile.Path())
		return outcome, nil
	}

	if removeError := runtimeEnvironment.reportFile.Remove(); removeError != nil {
		return outcome, fmt.Errorf(reportRemoveErrorTemplate, removeError)
	}
	service.logger.Debug(reportRemovedMessageConstant, zap.String(logFieldReportConstant, runtimeEnvironment.reportFile.Path()))

	for _, fault := range reconcileResult.Faults {
		fmt.Fprintf(service.errorOutput, reconcileFaultTemplate, fault)
	}
	fmt.Fprintf(statusOutput, changesAuthorizedTemplate, reconcileResult.Applied)
	return outcome, nil
}

// Initialize records the first baseline from explicit paths, the configured
// path list, the configured paths file or every file under the root, in that order.
func (service *Service) Initialize(executionContext context.Context, options InitOptions) (integrity.BootstrapResult, error) {
	configuration := options.Configuration.sanitize()
	runtimeEnvironment, environmentError := service.openEnvironment(configuration)
	if environmentError != nil {
		return integrity.BootstrapResult{}, environmentError
	}
	defer service.closeEnvironment(runtimeEnvironment)

	if !options.Force {
		_, loadError := runtimeEnvironment.stores.Baseline.LoadBaseline()
		switch {
		case loadError == nil:
			return integrity.BootstrapResult{}, ErrBaselineExists
		case !errors.Is(loadError, store.ErrBaselineNotFound):
			return integrity.BootstrapResult{}, fmt.Errorf(baselineLoadErrorTemplate, loadError)
		}
	}

	targets, targetsError := service.resolveBootstrapTargets(options, configuration, runtimeEnvironment.walker)
	if targetsError != nil {
		return integrity.BootstrapResult{}, targetsError
	}
	if len(targets) == 0 {
		return integrity.BootstrapResult{}, ErrNothingToTrack
	}

	bootstrapper, bootstrapperError := integrity.NewBootstrapper(
		service.logger,
		service.prober,
		runtimeEnvironment.stores.Snapshots,
		runtimeEnvironment.stores.Baseline,
		runtimeEnvironment.guard,
	)
	if bootstrapperError != nil {
		return integrity.BootstrapResult{}, bootstrapperError
	}

	bootstrapResult, bootstrapError := bootstrapper.Bootstrap(executionContext, targets)
	if bootstrapError != nil {
		return integrity.BootstrapResult{}, fmt.Errorf(bootstrapErrorTemplate, bootstrapError)
	}

	for _, skipped := range bootstrapResult.Skipped {
		fmt.Fprintf(service.errorOutput, bootstrapSkippedTemplate, skipped.Path, skipped.Err)
	}
	fmt.Fprintf(service.output, bootstrapCompletedTemplate, bootstrapResult.Baseline.Len())
	return bootstrapResult, nil
}

// ShowBaseline prints the accepted baseline.
func (service *Service) ShowBaseline(executionContext context.Context, options BaselineOptions) error {
	configuration := options.Configuration.sanitize()
	runtimeEnvironment, environmentError := service.openEnvironment(configuration)
	if environmentError != nil {
		return environmentError
	}
	defer service.closeEnvironment(runtimeEnvironment)

	release, acquireError := runtimeEnvironment.guard.AcquireShared(executionContext)
	if acquireError != nil {
		return acquireError
	}
	defer release()

	baseline, loadError := runtimeEnvironment.stores.Baseline.LoadBaseline()
	if errors.Is(loadError, store.ErrBaselineNotFound) {
		return ErrBaselineMissing
	}
	if loadError != nil {
		return fmt.Errorf(baselineLoadErrorTemplate, loadError)
	}

	if renderError := report.RenderBaseline(service.output, options.Format, baseline); renderError != nil {
		return fmt.Errorf(renderErrorTemplate, renderError)
	}
	return nil
}

func (service *Service) openEnvironment(configuration Configuration) (environment, error) {
	backend, backendError := store.ParseBackend(configuration.Store)
	if backendError != nil {
		return environment{}, backendError
	}

	stores, openError := store.Open(store.Options{
		Backend:           backend,
		BaselineFile:      configuration.BaselineFile,
		SnapshotDirectory: configuration.SnapshotDirectory,
		DatabaseFile:      configuration.DatabaseFile,
	})
	if openError != nil {
		return environment{}, fmt.Errorf(storeOpenErrorTemplate, openError)
	}

	excludedPaths := append([]string{configuration.ReportFile}, stores.Locations...)
	if len(configuration.LockFile) > 0 {
		excludedPaths = append(excludedPaths, configuration.LockFile)
	}
	if len(configuration.ConfigurationFile) > 0 {
		excludedPaths = append(excludedPaths, configuration.ConfigurationFile)
	}
	walker, walkerError := discovery.NewFilesystemWalker(discovery.Options{
		Ignore:  configuration.Ignore,
		Include: configuration.Include,
		Exclude: excludedPaths,
	})
	if walkerError != nil {
		_ = stores.Close()
		return environment{}, fmt.Errorf(walkerErrorTemplate, walkerError)
	}

	return environment{
		stores:     stores,
		guard:      integrity.NewGuard(configuration.LockFile, configuration.LockTimeout),
		walker:     walker,
		reportFile: report.NewFile(configuration.ReportFile),
	}, nil
}

func (service *Service) closeEnvironment(runtimeEnvironment environment) {
	if closeError := runtimeEnvironment.stores.Close(); closeError != nil {
		service.logger.Warn(storeCloseFaultMessageConstant, zap.Error(closeError))
	}
}

func (service *Service) render(options CheckOptions, scanResult integrity.ScanResult) error {
	renderer, rendererError := report.NewRenderer(options.Format, report.RendererOptions{
		Styled: options.Styled,
		Now:    service.clock.Now,
	})
	if rendererError != nil {
		return rendererError
	}
	if renderError := renderer.Render(service.output, scanResult); renderError != nil {
		return fmt.Errorf(renderErrorTemplate, renderError)
	}
	return nil
}

func (service *Service) writeUnevaluated(faults []integrity.FileFault) {
	for _, fault := range faults {
		fmt.Fprintf(service.errorOutput, unevaluatedFileTemplate, fault.Path, fault.Err)
	}
}

// statusWriter keeps machine-readable output free of status lines.
func (service *Service) statusWriter(format report.Format) io.Writer {
	if format == report.FormatText {
		return service.output
	}
	return service.errorOutput
}

func (service *Service) resolveBootstrapTargets(options InitOptions, configuration Configuration, walker integrity.FileWalker) ([]integrity.BootstrapTarget, error) {
	if explicitPaths := sanitizeList(options.Paths, true); len(explicitPaths) > 0 {
		return targetsFromPaths(explicitPaths), nil
	}
	if len(configuration.Paths) > 0 {
		return targetsFromPaths(configuration.Paths), nil
	}
	if len(configuration.PathsFile) > 0 {
		return readPathsFile(configuration.PathsFile)
	}
	discoveredPaths, walkError := walker.Walk(configuration.Root)
	if walkError != nil {
		return nil, &integrity.RootUnavailableError{Root: configuration.Root, Err: walkError}
	}
	return targetsFromPaths(discoveredPaths), nil
}

func targetsFromPaths(paths []string) []integrity.BootstrapTarget {
	targets := make([]integrity.BootstrapTarget, 0, len(paths))
	for _, path := range paths {
		targets = append(targets, integrity.BootstrapTarget{Path: path})
	}
	return targets
}

// pathsFileEntry accepts either a bare path or a mapping with name and path.
type pathsFileEntry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func (entry *pathsFileEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		entry.Path = node.Value
		return nil
	}
	type plainEntry pathsFileEntry
	var decoded plainEntry
	if decodeError := node.Decode(&decoded); decodeError != nil {
		return decodeError
	}
	*entry = pathsFileEntry(decoded)
	return nil
}

func readPathsFile(pathsFile string) ([]integrity.BootstrapTarget, error) {
	content, readError := os.ReadFile(pathsFile)
	if readError != nil {
		return nil, fmt.Errorf(pathsFileReadErrorTemplate, pathsFile, readError)
	}
	var entries []pathsFileEntry
	if parseError := yaml.Unmarshal(content, &entries); parseError != nil {
		return nil, fmt.Errorf(pathsFileParseErrorTemplate, pathsFile, parseError)
	}
	targets := make([]integrity.BootstrapTarget, 0, len(entries))
	for _, entry := range entries {
		expandedPath := sanitizePath(entry.Path, "")
		if len(expandedPath) == 0 {
			continue
		}
		targets = append(targets, integrity.BootstrapTarget{Name: entry.Name, Path: expandedPath})
	}
	return targets, nil
}
