package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"playground-mockserver/internal/logger"
	"playground-mockserver/internal/models"
	"playground-mockserver/internal/store"
)

// Playground implements resource and record CRUD over the file store.
type Playground struct {
	store  *store.Store
	logger *logger.Logger
}

func NewPlayground(st *store.Store, log *logger.Logger) *Playground {
	return &Playground{
		store:  st,
		logger: log,
	}
}

// NormalizeResource lowercases and trims a resource name.
func NormalizeResource(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateResource(name string) (string, error) {
	name = NormalizeResource(name)
	if name == "" {
		return "", &ValidationError{Field: "resource", Message: "Resource name is required"}
	}
	if strings.Contains(name, "/") {
		return "", &ValidationError{Field: "resource", Message: "Resource name must not contain '/'"}
	}
	return name, nil
}

func (p *Playground) ListResources() []string {
	var names []string
	_ = p.store.View(func(doc *store.Document) error {
		names = doc.Names()
		return nil
	})
	return names
}

// CreateResource registers an empty resource. It is idempotent: created is
// false when the resource already existed, and its records are left alone.
func (p *Playground) CreateResource(name string) (resource string, created bool, err error) {
	resource, err = validateResource(name)
	if err != nil {
		return "", false, err
	}

	err = p.store.Update(func(doc *store.Document) (bool, error) {
		if _, ok := doc.Resources[resource]; ok {
			return false, nil
		}
		if doc.HasExtra(resource) {
			return false, notResourceError(resource)
		}
		doc.Resources[resource] = []models.Record{}
		created = true
		return true, nil
	})
	if err != nil {
		return "", false, err
	}
	if created {
		p.logger.Debug("Resource "+resource+" created", "CreateResource")
	}
	return resource, created, nil
}

// EnsureResources creates every missing resource in one write. It returns
// the names that were added.
func (p *Playground) EnsureResources(names []string) ([]string, error) {
	var added []string
	err := p.store.Update(func(doc *store.Document) (bool, error) {
		for _, name := range names {
			resource, err := validateResource(name)
			if err != nil {
				return false, err
			}
			if _, ok := doc.Resources[resource]; ok {
				continue
			}
			if doc.HasExtra(resource) {
				return false, notResourceError(resource)
			}
			doc.Resources[resource] = []models.Record{}
			added = append(added, resource)
		}
		return len(added) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (p *Playground) DeleteResource(name string) (string, error) {
	resource := NormalizeResource(name)
	err := p.store.Update(func(doc *store.Document) (bool, error) {
		if _, ok := doc.Resources[resource]; !ok {
			return false, &NotFoundError{Resource: resource}
		}
		delete(doc.Resources, resource)
		return true, nil
	})
	return resource, err
}

func (p *Playground) ListRecords(name string) ([]models.Record, error) {
	resource := NormalizeResource(name)
	var records []models.Record
	err := p.store.View(func(doc *store.Document) error {
		list, ok := doc.Resources[resource]
		if !ok {
			return &NotFoundError{Resource: resource}
		}
		records = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// CreateRecord appends body to the resource under the next free id. Any id
// in body is replaced.
func (p *Playground) CreateRecord(name string, body models.Record) (models.Record, error) {
	resource := NormalizeResource(name)
	var record models.Record
	err := p.store.Update(func(doc *store.Document) (bool, error) {
		list, ok := doc.Resources[resource]
		if !ok {
			return false, &NotFoundError{Resource: resource}
		}
		next, ok := NextID(list)
		if !ok {
			return false, &CapacityError{Resource: resource}
		}
		record = body.Clone()
		record[models.IDField] = next
		doc.Resources[resource] = append(list, record)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (p *Playground) GetRecord(name, id string) (models.Record, error) {
	resource := NormalizeResource(name)
	var record models.Record
	err := p.store.View(func(doc *store.Document) error {
		list, ok := doc.Resources[resource]
		if !ok {
			return &NotFoundError{Resource: resource}
		}
		i := indexOf(list, id)
		if i < 0 {
			return &NotFoundError{Resource: resource, ID: id}
		}
		record = list[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// PatchRecord shallow-merges body into the stored record. The id is kept.
func (p *Playground) PatchRecord(name, id string, body models.Record) (models.Record, error) {
	resource := NormalizeResource(name)
	var record models.Record
	err := p.store.Update(func(doc *store.Document) (bool, error) {
		list, ok := doc.Resources[resource]
		if !ok {
			return false, &NotFoundError{Resource: resource}
		}
		i := indexOf(list, id)
		if i < 0 {
			return false, &NotFoundError{Resource: resource, ID: id}
		}
		merged := list[i].Clone()
		for k, v := range body {
			if k == models.IDField {
				continue
			}
			merged[k] = v
		}
		list[i] = merged
		record = merged
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteRecord removes exactly one record and returns it as it was stored.
func (p *Playground) DeleteRecord(name, id string) (models.Record, error) {
	resource := NormalizeResource(name)
	var removed models.Record
	err := p.store.Update(func(doc *store.Document) (bool, error) {
		list, ok := doc.Resources[resource]
		if !ok {
			return false, &NotFoundError{Resource: resource}
		}
		i := indexOf(list, id)
		if i < 0 {
			return false, &NotFoundError{Resource: resource, ID: id}
		}
		removed = list[i]
		doc.Resources[resource] = append(list[:i:i], list[i+1:]...)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Stats returns the number of resources and the total record count.
func (p *Playground) Stats() (resources, records int) {
	_ = p.store.View(func(doc *store.Document) error {
		resources = len(doc.Resources)
		for _, list := range doc.Resources {
			records += len(list)
		}
		return nil
	})
	return resources, records
}

// NextID is one more than the largest integer id in list, or 1. It reports
// false when the largest id is already math.MaxInt64.
func NextID(list []models.Record) (int64, bool) {
	var highest int64
	for _, r := range list {
		if id, ok := r.ID(); ok && id > highest {
			highest = id
		}
	}
	if highest == math.MaxInt64 {
		return 0, false
	}
	return highest + 1, true
}

func notResourceError(name string) error {
	return &ValidationError{Field: "resource", Message: fmt.Sprintf("Key '%s' is not a resource", name)}
}

func indexOf(list []models.Record, id string) int {
	want, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return -1
	}
	for i, r := range list {
		if got, ok := r.ID(); ok && got == want {
			return i
		}
	}
	return -1
}
