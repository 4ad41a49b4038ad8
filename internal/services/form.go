package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/pkg/stockapi"
)

// FormService owns the server-side state of the item entry form: the
// cascading category fields, the catalog they draw their options from,
// and the pending search selection waiting for the catalog to load.
//
// Catalog loads run asynchronously and are tagged with a generation
// number. A load started before the latest item-type change carries a
// stale generation and its response is discarded, so rapid item-type
// switching can never populate the form from the wrong catalog.
type FormService struct {
	log    logger.Logger
	client stockapi.Client

	mu         sync.Mutex
	state      models.FormState
	catalog    []models.CatalogGroup
	loading    bool
	generation uint64
	pending    *models.PendingSelection
	warning    string

	onChange func(FormSnapshot)
}

// FormSnapshot is a read-only view of the form for clients
type FormSnapshot struct {
	State         models.FormState `json:"state"`
	Loading       bool             `json:"loading"`
	HasPending    bool             `json:"hasPending"`
	Warning       string           `json:"warning,omitempty"`
	Categories    []string         `json:"categories"`
	Subcategories []string         `json:"subcategories"`
	Descriptions  []DescOption     `json:"descriptions"`
}

// DescOption is one selectable description with its catalog package size
type DescOption struct {
	Name string   `json:"name"`
	UOM  *float64 `json:"uom"`
}

// NewFormService creates a FormService
func NewFormService(log logger.Logger, client stockapi.Client) *FormService {
	return &FormService{log: log, client: client}
}

// OnChange registers a callback fired after every form mutation with a
// fresh snapshot. Used to persist form state and notify connected clients.
func (f *FormService) OnChange(fn func(FormSnapshot)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

func (f *FormService) notify() {
	f.mu.Lock()
	fn := f.onChange
	snap := f.snapshotLocked()
	f.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetItemType changes the item type and starts an asynchronous catalog
// load for it. An empty item type clears the catalog and the cascade.
func (f *FormService) SetItemType(itemType string) {
	f.mu.Lock()
	if f.state.ItemType == itemType {
		f.mu.Unlock()
		return
	}
	f.state.ItemType = itemType
	f.generation++
	gen := f.generation

	// A parked search pick belongs to the previous item type's catalog
	f.pending = nil
	f.warning = ""

	if itemType == "" {
		f.catalog = nil
		f.loading = false
		f.state.Category = ""
		f.state.Subcategory = ""
		f.state.Description = ""
		f.mu.Unlock()
		f.notify()
		return
	}

	f.loading = true
	f.mu.Unlock()

	go f.loadCatalog(gen, itemType)
	f.notify()
}

// RefreshCatalog reloads the catalog for the current item type
func (f *FormService) RefreshCatalog() {
	f.mu.Lock()
	itemType := f.state.ItemType
	if itemType == "" {
		f.mu.Unlock()
		return
	}
	f.generation++
	gen := f.generation
	f.loading = true
	f.mu.Unlock()

	go f.loadCatalog(gen, itemType)
}

func (f *FormService) loadCatalog(gen uint64, itemType string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	groups, err := f.client.FetchCatalog(ctx, itemType)

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		f.log.Debug("discarding stale catalog response", "itemType", itemType)
		return
	}
	f.loading = false

	if err != nil {
		f.catalog = nil
		f.warning = "Failed to load inventory data"
		f.mu.Unlock()
		f.log.Warn("catalog load failed", "itemType", itemType, "error", err)
		f.notify()
		return
	}

	f.catalog = convertCatalog(groups)

	// Keep the selected cascade only if the full triple survives in the
	// fresh catalog; a partial survivor would leave orphaned children.
	if !f.tripleExistsLocked(f.state.Category, f.state.Subcategory, f.state.Description) {
		f.state.Category = ""
		f.state.Subcategory = ""
		f.state.Description = ""
	}

	f.applyPendingLocked()
	f.mu.Unlock()

	f.log.Info("catalog loaded", "itemType", itemType, "groups", len(groups))
	f.notify()
}

func convertCatalog(groups []stockapi.Group) []models.CatalogGroup {
	out := make([]models.CatalogGroup, 0, len(groups))
	for _, g := range groups {
		cg := models.CatalogGroup{Name: g.Name}
		for _, sg := range g.Subgroups {
			csg := models.CatalogSubgroup{Name: sg.Name}
			for _, p := range sg.Particulars {
				csg.Particulars = append(csg.Particulars, models.CatalogParticular{
					Name: p.Name,
					UOM:  p.UOM.Value,
				})
			}
			cg.Subgroups = append(cg.Subgroups, csg)
		}
		out = append(out, cg)
	}
	return out
}

// AwaitIdle blocks until no catalog load is in flight, or the timeout
// passes. Intended for tests and graceful shutdown.
func (f *FormService) AwaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		f.mu.Lock()
		loading := f.loading
		f.mu.Unlock()
		if !loading {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *FormService) findGroupLocked(name string) *models.CatalogGroup {
	for i := range f.catalog {
		if f.catalog[i].Name == name {
			return &f.catalog[i]
		}
	}
	return nil
}

func (f *FormService) tripleExistsLocked(category, subcategory, description string) bool {
	group := f.findGroupLocked(category)
	if group == nil {
		return false
	}
	for _, sg := range group.Subgroups {
		if sg.Name != subcategory {
			continue
		}
		for _, p := range sg.Particulars {
			if p.Name == description {
				return true
			}
		}
	}
	return false
}

func (f *FormService) lookupUOMLocked(category, subcategory, description string) *float64 {
	group := f.findGroupLocked(category)
	if group == nil {
		return nil
	}
	for _, sg := range group.Subgroups {
		if sg.Name != subcategory {
			continue
		}
		for _, p := range sg.Particulars {
			if p.Name == description {
				return p.UOM
			}
		}
	}
	return nil
}

func formatPackageSize(uom float64) string {
	return strconv.FormatFloat(uom, 'f', 3, 64)
}

// SetCategory selects a category. Changing or clearing it resets the
// dependent fields; a concrete category clears the custom name left over
// from a previous OTHER selection.
func (f *FormService) SetCategory(category string) {
	f.mu.Lock()
	if f.state.Category != category {
		f.state.Subcategory = ""
		f.state.Description = ""
		f.state.CustomItemName = ""
	}
	f.state.Category = category
	if category != "" && category != OtherValue {
		f.state.CustomCategory = ""
	}
	f.mu.Unlock()
	f.notify()
}

// SetSubcategory selects a subcategory, resetting dependent fields on change
func (f *FormService) SetSubcategory(subcategory string) {
	f.mu.Lock()
	if f.state.Subcategory != subcategory {
		f.state.Description = ""
		f.state.CustomItemName = ""
		f.state.PackageSize = ""
	}
	f.state.Subcategory = subcategory
	f.mu.Unlock()
	f.notify()
}

// SetDescription selects a description. A concrete selection clears any
// custom item name and fills the package size from the catalog when the
// catalog knows it; an unknown package size keeps whatever the operator
// already entered.
func (f *FormService) SetDescription(description string) {
	f.mu.Lock()
	f.state.Description = description
	if description != "" && description != OtherValue {
		f.state.CustomItemName = ""
		if f.state.Category != "" && f.state.Subcategory != "" {
			if uom := f.lookupUOMLocked(f.state.Category, f.state.Subcategory, description); uom != nil {
				f.state.PackageSize = formatPackageSize(*uom)
			}
		}
	}
	f.mu.Unlock()
	f.notify()
}

// SetField updates one of the free-text form fields
func (f *FormService) SetField(name, value string) error {
	f.mu.Lock()
	switch name {
	case "stockType":
		f.state.StockType = value
	case "customCategory":
		f.state.CustomCategory = value
	case "customItemName":
		f.state.CustomItemName = value
	case "packageSize":
		f.state.PackageSize = value
	case "units":
		f.state.Units = value
	default:
		f.mu.Unlock()
		return &ServiceError{Message: "unknown form field: " + name}
	}
	f.mu.Unlock()
	f.notify()
	return nil
}

// SelectSearchResult applies a search pick to the cascade. When the catalog
// for the current item type has not finished loading, or the pick is not in
// it yet, the pick is parked as a pending selection and applied as soon as
// a catalog load completes.
func (f *FormService) SelectSearchResult(result models.SearchResult) {
	group := strings.ToUpper(strings.TrimSpace(result.Group))
	subgroup := strings.ToUpper(strings.TrimSpace(result.Subgroup))
	particulars := strings.ToUpper(strings.TrimSpace(result.Particulars))
	if group == "" || subgroup == "" || particulars == "" {
		return
	}

	f.mu.Lock()
	if len(f.catalog) > 0 && f.tripleExistsLocked(group, subgroup, particulars) {
		f.state.Category = group
		f.state.Subcategory = subgroup
		f.state.Description = particulars
		f.state.CustomCategory = ""
		f.state.CustomItemName = ""
		if result.UOM != nil {
			f.state.PackageSize = formatPackageSize(*result.UOM)
		}
		f.pending = nil
		f.warning = ""
		f.mu.Unlock()
		f.notify()
		return
	}

	f.pending = &models.PendingSelection{
		Group:       group,
		Subgroup:    subgroup,
		Particulars: particulars,
		UOM:         result.UOM,
	}
	if len(f.catalog) > 0 {
		f.state.Category = group
	}
	f.mu.Unlock()

	f.log.Debug("search selection parked until catalog is ready",
		"group", group, "subgroup", subgroup, "particulars", particulars)
	f.notify()
}

// applyPendingLocked resolves a parked selection against the loaded
// catalog. A selection the catalog does not contain stays parked and
// raises a warning, since a refresh of the same catalog may carry it;
// changing the item type discards it instead.
func (f *FormService) applyPendingLocked() {
	if f.pending == nil || len(f.catalog) == 0 {
		return
	}
	p := f.pending
	if !f.tripleExistsLocked(p.Group, p.Subgroup, p.Particulars) {
		f.warning = "Selected item was not found in the current catalog"
		f.log.Warn("pending selection not in catalog",
			"group", p.Group, "subgroup", p.Subgroup, "particulars", p.Particulars)
		return
	}
	f.state.Category = p.Group
	f.state.Subcategory = p.Subgroup
	f.state.Description = p.Particulars
	f.state.CustomCategory = ""
	f.state.CustomItemName = ""
	if p.UOM != nil {
		f.state.PackageSize = formatPackageSize(*p.UOM)
	}
	f.pending = nil
	f.warning = ""
}

// Restore resumes the form from a persisted session snapshot. Non-empty
// fields are restored individually and a catalog load is kicked off for
// the restored item type; the cascade is validated when it lands.
func (f *FormService) Restore(session *models.FloorSession) {
	f.mu.Lock()
	itemType := ""
	if session.ItemType != "" {
		itemType = strings.ToLower(session.ItemType)
	}
	if fs := session.CurrentFormState; fs != nil {
		if fs.StockType != "" {
			f.state.StockType = fs.StockType
		}
		if fs.ItemType != "" {
			itemType = fs.ItemType
		}
		if fs.Category != "" {
			f.state.Category = fs.Category
		}
		if fs.CustomCategory != "" {
			f.state.CustomCategory = fs.CustomCategory
		}
		if fs.Subcategory != "" {
			f.state.Subcategory = fs.Subcategory
		}
		if fs.Description != "" {
			f.state.Description = fs.Description
		}
		if fs.CustomItemName != "" {
			f.state.CustomItemName = fs.CustomItemName
		}
		if fs.PackageSize != "" {
			f.state.PackageSize = fs.PackageSize
		}
		if fs.Units != "" {
			f.state.Units = fs.Units
		}
	}

	if itemType == "" || itemType == f.state.ItemType {
		f.mu.Unlock()
		f.notify()
		return
	}
	f.state.ItemType = itemType
	f.generation++
	gen := f.generation
	f.loading = true
	f.mu.Unlock()

	go f.loadCatalog(gen, itemType)
	f.notify()
}

// ResetAfterAdd clears the per-item fields while keeping the stock and
// item type for the next entry.
func (f *FormService) ResetAfterAdd() {
	f.mu.Lock()
	f.state.Category = ""
	f.state.CustomCategory = ""
	f.state.Subcategory = ""
	f.state.Description = ""
	f.state.CustomItemName = ""
	f.state.PackageSize = ""
	f.state.Units = ""
	f.mu.Unlock()
	f.notify()
}

// ClearWarning dismisses the current form warning
func (f *FormService) ClearWarning() {
	f.mu.Lock()
	f.warning = ""
	f.mu.Unlock()
}

// State returns a copy of the raw form state
func (f *FormService) State() models.FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot returns the current form view including cascade options
func (f *FormService) Snapshot() FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *FormService) snapshotLocked() FormSnapshot {
	snap := FormSnapshot{
		State:      f.state,
		Loading:    f.loading,
		HasPending: f.pending != nil,
		Warning:    f.warning,
	}
	for _, g := range f.catalog {
		snap.Categories = append(snap.Categories, g.Name)
	}
	if group := f.findGroupLocked(f.state.Category); group != nil {
		for _, sg := range group.Subgroups {
			snap.Subcategories = append(snap.Subcategories, sg.Name)
			if sg.Name == f.state.Subcategory {
				for _, p := range sg.Particulars {
					snap.Descriptions = append(snap.Descriptions, DescOption{Name: p.Name, UOM: p.UOM})
				}
			}
		}
	}
	return snap
}
