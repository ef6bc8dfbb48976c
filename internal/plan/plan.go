// Package plan builds the live update plan: one pass over every enabled
// source, a capacity verdict over the plan's own transient total, and the
// helper/advisory annotations, serialized as a single document.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pacscout/pacscout/internal/alpm"
	"github.com/pacscout/pacscout/internal/aur"
	"github.com/pacscout/pacscout/internal/config"
	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/flatpak"
	"github.com/pacscout/pacscout/internal/fwupd"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/news"
	"github.com/pacscout/pacscout/internal/run"
	"github.com/pacscout/pacscout/internal/space"
)

// PacmanUpdate is one pending repository update
type PacmanUpdate struct {
	Name          string  `json:"name"`
	Installed     string  `json:"installed"`
	Available     string  `json:"available"`
	DownloadSize  *uint64 `json:"download_size,omitempty"`
	InstalledSize *uint64 `json:"installed_size,omitempty"`
}

// AURUpdate is one pending foreign-package update. The RPC endpoint
// advertises no sizes, so none are carried.
type AURUpdate struct {
	Name      string `json:"name"`
	Installed string `json:"installed"`
	Available string `json:"available"`
}

// SpaceInfo is the capacity verdict folded into the plan metadata
type SpaceInfo struct {
	Policy         string  `json:"policy"`
	MinFreeBytes   uint64  `json:"min_free_bytes"`
	RequiredBytes  uint64  `json:"required_bytes"`
	AvailableBytes *uint64 `json:"available_bytes,omitempty"`
	CheckedPath    string  `json:"checked_path,omitempty"`
	Status         string  `json:"status"`
	Warning        string  `json:"warning,omitempty"`
}

// Metadata is the plan's header block
type Metadata struct {
	GeneratedAt string          `json:"generated_at"`
	GeneratedBy string          `json:"generated_by"`
	Sources     []string        `json:"sources"`
	AURHelper   string          `json:"aur_helper,omitempty"`
	Advisories  []news.Advisory `json:"advisories,omitempty"`
	Space       SpaceInfo       `json:"space"`
	Errors      []string        `json:"errors"`
}

// Counts summarizes pending updates per source
type Counts struct {
	Pacman  int `json:"pacman"`
	AUR     int `json:"aur"`
	Flatpak int `json:"flatpak"`
	Fwupd   int `json:"fwupd"`
}

// Document is the root plan aggregate
type Document struct {
	Metadata       Metadata         `json:"metadata"`
	PacmanUpdates  []PacmanUpdate   `json:"pacman_updates"`
	AURUpdates     []AURUpdate      `json:"aur_updates"`
	FlatpakUpdates []flatpak.Update `json:"flatpak_updates"`
	FwupdUpdates   []fwupd.Update   `json:"fwupd_updates"`
	Counts         Counts           `json:"counts"`
}

// Total counts pending updates across all sources
func (d *Document) Total() int {
	return d.Counts.Pacman + d.Counts.AUR + d.Counts.Flatpak + d.Counts.Fwupd
}

// Marshal renders the document as indented JSON with a trailing newline
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errdefs.Serialization("encoding plan: %v", err)
	}
	return append(data, '\n'), nil
}

// SpaceAssessor reports the most constrained candidate filesystem
type SpaceAssessor interface {
	MostConstrained() (*space.Report, error)
}

// Aggregator runs one plan pass. Collaborators default to the real tool
// adapters and can be replaced through options.
type Aggregator struct {
	cfg         *config.Config
	runner      run.Runner
	aurClient   *aur.Client
	newsClient  *news.Client
	assessor    SpaceAssessor
	generatedBy string
	dryRun      bool
	noNews      bool
	now         time.Time
}

// AggregatorOption is a functional option for configuring Aggregator
type AggregatorOption func(*Aggregator) error

// WithRunner sets the external tool runner
func WithRunner(r run.Runner) AggregatorOption {
	return func(a *Aggregator) error {
		a.runner = r
		return nil
	}
}

// WithAURClient sets the AUR RPC client
func WithAURClient(c *aur.Client) AggregatorOption {
	return func(a *Aggregator) error {
		a.aurClient = c
		return nil
	}
}

// WithNewsClient sets the news client used for advisory annotations
func WithNewsClient(c *news.Client) AggregatorOption {
	return func(a *Aggregator) error {
		a.newsClient = c
		return nil
	}
}

// WithSpaceAssessor sets the disk space assessor
func WithSpaceAssessor(sa SpaceAssessor) AggregatorOption {
	return func(a *Aggregator) error {
		a.assessor = sa
		return nil
	}
}

// WithGeneratedBy sets the generated_by stamp
func WithGeneratedBy(v string) AggregatorOption {
	return func(a *Aggregator) error {
		a.generatedBy = v
		return nil
	}
}

// WithDryRun marks the pass as dry-run. A capacity shortfall then warns
// instead of blocking.
func WithDryRun(dryRun bool) AggregatorOption {
	return func(a *Aggregator) error {
		a.dryRun = dryRun
		return nil
	}
}

// WithoutNews suppresses the advisory annotation for this pass
func WithoutNews() AggregatorOption {
	return func(a *Aggregator) error {
		a.noNews = true
		return nil
	}
}

// WithNow pins the generated_at timestamp
func WithNow(t time.Time) AggregatorOption {
	return func(a *Aggregator) error {
		a.now = t
		return nil
	}
}

// NewAggregator creates an aggregator over cfg, then fills in any
// collaborator the options left unset.
func NewAggregator(cfg *config.Config, opts ...AggregatorOption) (*Aggregator, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	agg := &Aggregator{
		cfg:         cfg,
		generatedBy: "pacscout",
	}
	for _, opt := range opts {
		if err := opt(agg); err != nil {
			return nil, fmt.Errorf("applying plan option: %w", err)
		}
	}

	if agg.runner == nil {
		agg.runner = run.NewExecRunner()
	}
	if agg.assessor == nil {
		agg.assessor = space.NewAssessor()
	}
	if agg.aurClient == nil && cfg.Sources.AUR {
		client, err := aur.NewClient(
			aur.WithBaseURL(cfg.AUR.BaseURL),
			aur.WithMaxBatch(cfg.AUR.MaxBatch),
			aur.WithTimeout(cfg.AURTimeout()),
			aur.WithRetries(cfg.AUR.MaxRetries),
		)
		if err != nil {
			return nil, err
		}
		agg.aurClient = client
	}
	if agg.newsClient == nil && cfg.News.Enabled {
		agg.newsClient = news.NewClient(cfg.News.URL, news.Extractor{
			Selector: cfg.News.Selector,
			XPath:    cfg.News.XPath,
			MaxItems: cfg.News.MaxItems,
		})
	}

	return agg, nil
}

// Build runs one full plan pass: collect per source, assess capacity,
// annotate, count. Per-source failures land in the document's error list
// and never abort the pass. The returned error is non-nil only under the
// enforce policy: a capacity shortfall, or a probe failure that left the
// required verdict undecidable.
func (a *Aggregator) Build() (*Document, error) {
	now := a.now
	if now.IsZero() {
		now = time.Now()
	}

	doc := &Document{
		Metadata: Metadata{
			GeneratedAt: now.UTC().Format(time.RFC3339),
			GeneratedBy: a.generatedBy,
			Sources:     []string{},
			Errors:      []string{},
		},
		PacmanUpdates:  []PacmanUpdate{},
		AURUpdates:     []AURUpdate{},
		FlatpakUpdates: []flatpak.Update{},
		FwupdUpdates:   []fwupd.Update{},
	}

	var req space.Requirement
	if a.cfg.Sources.Pacman {
		doc.Metadata.Sources = append(doc.Metadata.Sources, "pacman")
		a.collectPacman(doc, &req)
	}
	if a.cfg.Sources.AUR {
		doc.Metadata.Sources = append(doc.Metadata.Sources, "aur")
		a.collectAUR(doc, &req)
	}
	if a.cfg.Sources.Flatpak {
		doc.Metadata.Sources = append(doc.Metadata.Sources, "flatpak")
		a.collectFlatpak(doc)
	}
	if a.cfg.Sources.Fwupd {
		doc.Metadata.Sources = append(doc.Metadata.Sources, "fwupd")
		a.collectFwupd(doc)
	}

	blockErr := a.assessCapacity(doc, req)
	a.annotate(doc)

	doc.Counts = Counts{
		Pacman:  len(doc.PacmanUpdates),
		AUR:     len(doc.AURUpdates),
		Flatpak: len(doc.FlatpakUpdates),
		Fwupd:   len(doc.FwupdUpdates),
	}
	return doc, blockErr
}

// collectPacman takes the non-local installed subset, asks the sync
// database for advertised versions, and records strict upgrades.
func (a *Aggregator) collectPacman(doc *Document, req *space.Requirement) {
	installed, err := alpm.NewCollector(a.runner).List()
	if err != nil {
		a.fail(doc, "pacman", err)
		return
	}

	byName := make(map[string]manifest.InstalledPackage)
	var names []string
	for _, pkg := range installed {
		if pkg.IsLocal() {
			continue
		}
		byName[pkg.Name] = pkg
		names = append(names, pkg.Name)
	}
	sort.Strings(names)

	catalog, err := alpm.NewCatalog(a.runner).Query(names)
	if err != nil {
		a.fail(doc, "pacman", err)
		return
	}

	oracle := alpm.NewOracle(a.runner)
	for _, name := range names {
		info, ok := catalog[name]
		if !ok {
			continue
		}
		pkg := byName[name]
		cmp, err := oracle.Compare(pkg.Version, info.Version)
		if err != nil {
			a.fail(doc, "pacman", fmt.Errorf("comparing %s: %w", name, err))
			continue
		}
		if cmp >= 0 {
			continue
		}

		doc.PacmanUpdates = append(doc.PacmanUpdates, PacmanUpdate{
			Name:          name,
			Installed:     pkg.Version,
			Available:     info.Version,
			DownloadSize:  info.DownloadSize,
			InstalledSize: info.InstalledSize,
		})
		infoCopy := info
		addEstimates(req, manifest.Estimate(manifest.SourcePacman, &infoCopy, nil))
	}
}

// collectAUR batch-queries the RPC endpoint for the foreign subset
func (a *Aggregator) collectAUR(doc *Document, req *space.Requirement) {
	foreign, err := alpm.NewCollector(a.runner).Foreign()
	if err != nil {
		a.fail(doc, "aur", err)
		return
	}
	if len(foreign) == 0 {
		return
	}

	byName := make(map[string]manifest.InstalledPackage)
	var names []string
	for _, pkg := range foreign {
		byName[pkg.Name] = pkg
		names = append(names, pkg.Name)
	}
	sort.Strings(names)

	catalog, err := a.aurClient.Info(names)
	if err != nil {
		a.fail(doc, "aur", err)
		return
	}

	oracle := alpm.NewOracle(a.runner)
	for _, name := range names {
		info, ok := catalog[name]
		if !ok {
			continue
		}
		pkg := byName[name]
		cmp, err := oracle.Compare(pkg.Version, info.Version)
		if err != nil {
			a.fail(doc, "aur", fmt.Errorf("comparing %s: %w", name, err))
			continue
		}
		if cmp >= 0 {
			continue
		}

		doc.AURUpdates = append(doc.AURUpdates, AURUpdate{
			Name:      name,
			Installed: pkg.Version,
			Available: info.Version,
		})
		infoCopy := info
		addEstimates(req, manifest.Estimate(manifest.SourceAUR, nil, &infoCopy))
	}
}

func (a *Aggregator) collectFlatpak(doc *Document) {
	updates, err := flatpak.NewSource(a.runner).Updates()
	if err != nil {
		if errors.Is(err, errdefs.ErrCommandMissing) {
			logging.WithCode("FLATPAK").Infof("%v; source skipped", err)
			return
		}
		a.fail(doc, "flatpak", err)
		return
	}
	doc.FlatpakUpdates = append(doc.FlatpakUpdates, updates...)
}

func (a *Aggregator) collectFwupd(doc *Document) {
	updates, err := fwupd.NewSource(a.runner).Updates()
	if err != nil {
		if errors.Is(err, errdefs.ErrCommandMissing) {
			logging.WithCode("FWUPD").Infof("%v; source skipped", err)
			return
		}
		a.fail(doc, "fwupd", err)
		return
	}
	doc.FwupdUpdates = append(doc.FwupdUpdates, updates...)
}

// assessCapacity probes disk space and folds the verdict into the
// metadata. Under the enforce policy a shortfall also lands in the error
// list and comes back as the block error, unless this is a dry run. A
// failed probe is fatal only when enforce requires a verdict; otherwise it
// degrades to the unknown status.
func (a *Aggregator) assessCapacity(doc *Document, req space.Requirement) error {
	req.Buffer = a.cfg.MinFreeBytes()
	req.Margin = a.cfg.ExtraMarginBytes()

	enforce := a.cfg.Space.Policy == config.PolicyEnforce

	info := SpaceInfo{
		Policy:        a.cfg.Space.Policy,
		MinFreeBytes:  a.cfg.MinFreeBytes(),
		RequiredBytes: req.Total(),
	}

	report, err := a.assessor.MostConstrained()
	if err != nil {
		if enforce && !a.dryRun {
			info.Status = space.StatusUnknown
			doc.Metadata.Space = info
			return err
		}
		logging.WithCode("SPACE").Warnf("assessing disk space: %v", err)
		report = nil
	}
	if report != nil {
		avail := report.AvailableBytes
		info.AvailableBytes = &avail
		info.CheckedPath = report.Path
	}

	status, warning, gateErr := space.Gate(report, req, enforce, a.dryRun)
	info.Status = status
	info.Warning = warning
	doc.Metadata.Space = info

	if gateErr != nil {
		doc.Metadata.Errors = append(doc.Metadata.Errors, warning)
	}
	return gateErr
}

// annotate records the first AUR helper found on PATH and the recent news
// advisories. Advisory fetch failures are logged only.
func (a *Aggregator) annotate(doc *Document) {
	for _, helper := range a.cfg.Helpers.Priority {
		if _, err := a.runner.LookPath(helper); err == nil {
			doc.Metadata.AURHelper = helper
			break
		}
	}

	if a.noNews || a.newsClient == nil || !a.cfg.News.Enabled {
		return
	}
	advisories, err := a.newsClient.Recent()
	if err != nil {
		logging.WithCode("NEWS").Warnf("fetching advisories: %v", err)
		return
	}
	doc.Metadata.Advisories = advisories
}

// fail records a per-source failure and keeps the pass going
func (a *Aggregator) fail(doc *Document, source string, err error) {
	logging.WithCode("PLAN").Warnf("%s: %v", source, err)
	doc.Metadata.Errors = append(doc.Metadata.Errors, fmt.Sprintf("%s: %v", source, err))
}

func addEstimates(req *space.Requirement, est manifest.Estimates) {
	if est.DownloadSelected != nil {
		req.Download += *est.DownloadSelected
	}
	if est.Build != nil {
		req.Build += *est.Build
	}
	if est.Install != nil {
		req.Install += *est.Install
	}
}
