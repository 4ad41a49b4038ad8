package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/internal/repository"
)

// OtherValue marks the custom-entry choice in category and description lists
const OtherValue = "OTHER"

// EntryServiceRepository defines the repository methods needed by EntryService
type EntryServiceRepository interface {
	repository.SessionRepository
}

// EntryService handles item entry business logic: validation, weight
// calculation, quantity siblings and grouped display of the running tally.
type EntryService struct {
	log  logger.Logger
	repo EntryServiceRepository
	seq  atomic.Uint64
}

// NewEntryService creates a new EntryService
func NewEntryService(log logger.Logger, repo EntryServiceRepository) *EntryService {
	return &EntryService{log: log, repo: repo}
}

// newEntryID returns a time-derived identifier unique within the process.
// The millisecond prefix alone can collide when entries land in the same
// tick, so a sequence counter is appended.
func (s *EntryService) newEntryID() string {
	return fmt.Sprintf("item-%d-%d", time.Now().UnixMilli(), s.seq.Add(1))
}

// FormatUOM renders a package size for display with three decimal places,
// in gm below 1 kg and in kg at or above it.
func FormatUOM(uom float64) string {
	if math.IsNaN(uom) {
		return ""
	}
	formatted := strconv.FormatFloat(uom, 'f', 3, 64)
	if uom < 1 {
		return formatted + "gm"
	}
	return formatted + "kg"
}

// ComputeWeight calculates total weight as package size times unit count
func ComputeWeight(packageSize, units float64) float64 {
	return packageSize * units
}

// parsePositive parses a decimal field and reports whether it is a valid
// positive number.
func parsePositive(value string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(n) || n <= 0 {
		return 0, false
	}
	return n, true
}

// ValidateEntry checks a form snapshot against the entry rules and returns
// the parsed package size and units on success. Three modes apply: regular
// items need the full cascade, a custom category needs its free-text name,
// and a custom item skips the subcategory requirement.
func ValidateEntry(form *models.FormState) (packageSize, units float64, err error) {
	isOtherCategory := form.Category == OtherValue
	isOtherItem := form.Description == OtherValue

	if form.StockType == "" || form.ItemType == "" {
		return 0, 0, ErrStockItemTypeReq
	}
	if form.Category == "" {
		return 0, 0, ErrCategoryRequired
	}
	if isOtherCategory && form.CustomCategory == "" {
		return 0, 0, ErrUnlistedNameReq
	}

	switch {
	case isOtherItem:
		if form.CustomItemName == "" || form.PackageSize == "" || form.Units == "" {
			return 0, 0, ErrOtherFieldsReq
		}
	case !isOtherCategory:
		if form.Subcategory == "" || form.Description == "" || form.PackageSize == "" || form.Units == "" {
			return 0, 0, ErrAllFieldsRequired
		}
	default:
		if form.PackageSize == "" || form.Units == "" {
			return 0, 0, ErrUOMUnitsRequired
		}
	}

	pkg, pkgOK := parsePositive(form.PackageSize)
	qty, qtyOK := parsePositive(form.Units)
	if !pkgOK || !qtyOK {
		return 0, 0, ErrUOMUnitsInvalid
	}
	return pkg, qty, nil
}

// BuildItem validates a form snapshot and materialises an AddedItem from it.
// Text fields are upper-cased; custom values replace the OTHER placeholders.
func (s *EntryService) BuildItem(form *models.FormState) (*models.AddedItem, error) {
	pkg, qty, err := ValidateEntry(form)
	if err != nil {
		return nil, err
	}

	isOtherCategory := form.Category == OtherValue
	isOtherItem := form.Description == OtherValue

	category := strings.ToUpper(form.Category)
	if isOtherCategory {
		category = strings.ToUpper(form.CustomCategory)
	} else if isOtherItem {
		category = ""
	}
	subcategory := strings.ToUpper(form.Subcategory)
	if isOtherItem {
		subcategory = ""
	}
	description := strings.ToUpper(form.Description)
	if isOtherItem {
		description = strings.ToUpper(form.CustomItemName)
	}

	stockType := models.StockTypeFresh
	if form.StockType == "offgrade" {
		stockType = models.StockTypeOffGrade
	}

	return &models.AddedItem{
		ID:          s.newEntryID(),
		StockType:   stockType,
		ItemType:    strings.ToUpper(form.ItemType),
		Category:    category,
		Subcategory: subcategory,
		Description: description,
		PackageSize: pkg,
		Units:       qty,
		TotalWeight: ComputeWeight(pkg, qty),
	}, nil
}

// AddItem appends an item to the current session and persists it
func (s *EntryService) AddItem(ctx context.Context, item *models.AddedItem) (*models.FloorSession, error) {
	session, err := s.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	session.Items = append(session.Items, *item)
	if err := s.saveCurrent(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("item added", "id", item.ID, "description", item.Description, "units", item.Units)
	return session, nil
}

// ItemKey identifies a logical item line within a session: entries sharing
// a subcategory and description are quantity siblings of the same line.
func ItemKey(subcategory, description string) string {
	return subcategory + "|" + description
}

// AddQuantity records an extra count for an existing item line. The new
// entry inherits every field of the first matching entry except units and
// weight, and gets its own identifier.
func (s *EntryService) AddQuantity(ctx context.Context, itemKey, quantity string) (*models.AddedItem, error) {
	qty, ok := parsePositive(quantity)
	if !ok {
		return nil, ErrQuantityInvalid
	}

	session, err := s.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	var existing *models.AddedItem
	for i := range session.Items {
		if ItemKey(session.Items[i].Subcategory, session.Items[i].Description) == itemKey {
			existing = &session.Items[i]
			break
		}
	}
	if existing == nil {
		return nil, ErrItemNotFound
	}

	sibling := models.AddedItem{
		ID:          s.newEntryID(),
		StockType:   existing.StockType,
		ItemType:    existing.ItemType,
		Category:    existing.Category,
		Subcategory: existing.Subcategory,
		Description: existing.Description,
		PackageSize: existing.PackageSize,
		Units:       qty,
		TotalWeight: ComputeWeight(existing.PackageSize, qty),
	}
	session.Items = append(session.Items, sibling)
	if err := s.saveCurrent(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("quantity added", "key", itemKey, "units", qty)
	return &sibling, nil
}

// RemoveItem deletes a single entry by id, leaving quantity siblings intact
func (s *EntryService) RemoveItem(ctx context.Context, id string) (*models.FloorSession, error) {
	session, err := s.currentSession(ctx)
	if err != nil {
		return nil, err
	}

	kept := session.Items[:0]
	found := false
	for _, item := range session.Items {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, ErrItemNotFound
	}
	session.Items = kept
	if err := s.saveCurrent(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("item removed", "id", id)
	return session, nil
}

// QuantityEntry is one count recorded against an item line
type QuantityEntry struct {
	ID          string  `json:"id"`
	Units       float64 `json:"units"`
	TotalWeight float64 `json:"totalWeight"`
}

// GroupedLine is one logical item with all its quantity entries
type GroupedLine struct {
	Key         string          `json:"key"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	ItemType    string          `json:"itemType"`
	StockType   string          `json:"stockType"`
	PackageSize float64         `json:"packageSize"`
	Quantities  []QuantityEntry `json:"quantities"`
	Subtotal    float64         `json:"subtotal"`
}

// GroupedCategory is one category with its item lines in entry order
type GroupedCategory struct {
	Category string        `json:"category"`
	Lines    []GroupedLine `json:"lines"`
	Subtotal float64       `json:"subtotal"`
}

// GroupedItems is the full display tally for a session
type GroupedItems struct {
	Categories  []GroupedCategory `json:"categories"`
	TotalWeight float64           `json:"totalWeight"`
}

// GroupItems organises entries by category, then by item line, preserving
// first-appearance order at both levels.
func GroupItems(items []models.AddedItem) GroupedItems {
	var out GroupedItems
	catIndex := make(map[string]int)
	lineIndex := make(map[string]map[string]int)

	for _, item := range items {
		ci, ok := catIndex[item.Category]
		if !ok {
			ci = len(out.Categories)
			catIndex[item.Category] = ci
			lineIndex[item.Category] = make(map[string]int)
			out.Categories = append(out.Categories, GroupedCategory{Category: item.Category})
		}
		cat := &out.Categories[ci]

		key := ItemKey(item.Subcategory, item.Description)
		li, ok := lineIndex[item.Category][key]
		if !ok {
			li = len(cat.Lines)
			lineIndex[item.Category][key] = li
			cat.Lines = append(cat.Lines, GroupedLine{
				Key:         key,
				Subcategory: item.Subcategory,
				Description: item.Description,
				Category:    item.Category,
				ItemType:    item.ItemType,
				StockType:   item.StockType,
				PackageSize: item.PackageSize,
			})
		}
		line := &cat.Lines[li]
		line.Quantities = append(line.Quantities, QuantityEntry{
			ID:          item.ID,
			Units:       item.Units,
			TotalWeight: item.TotalWeight,
		})
		line.Subtotal += item.TotalWeight
		cat.Subtotal += item.TotalWeight
		out.TotalWeight += item.TotalWeight
	}
	return out
}

// GroupedForCurrent returns the grouped tally for the current session
func (s *EntryService) GroupedForCurrent(ctx context.Context) (GroupedItems, error) {
	session, err := s.currentSession(ctx)
	if err != nil {
		return GroupedItems{}, err
	}
	return GroupItems(session.Items), nil
}

func (s *EntryService) currentSession(ctx context.Context) (*models.FloorSession, error) {
	session, err := s.repo.GetCurrent(ctx)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return session, nil
}

func (s *EntryService) saveCurrent(ctx context.Context, session *models.FloorSession) error {
	session.LastModified = time.Now().UTC().Format(time.RFC3339)
	return s.repo.SaveCurrent(ctx, session)
}
