package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one row of the SQL backend. TenantId is derived from the
// document path so the tenant guard callback can scope queries. A tenant's
// root document belongs to that tenant.
type Document struct {
	ID             uint      `gorm:"primary_key" json:"-"`
	CollectionPath string    `gorm:"size:255;not null;uniqueIndex:idx_documents_path,priority:1" json:"collection_path"`
	DocId          string    `gorm:"size:64;not null;uniqueIndex:idx_documents_path,priority:2" json:"doc_id"`
	TenantId       string    `gorm:"index;size:64;not null;default:''" json:"tenant_id"`
	Data           string    `gorm:"type:json;not null" json:"data"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var fieldName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type GormStore struct {
	db *gorm.DB
	// tenantOf maps a document path to the tenant that owns it.
	tenantOf func(path string) string
}

var _ Store = (*GormStore)(nil)

// NewGormStore wraps db. tenantOf may be nil when rows carry no tenant.
func NewGormStore(db *gorm.DB, tenantOf func(path string) string) *GormStore {
	if tenantOf == nil {
		tenantOf = func(string) string { return "" }
	}
	return &GormStore{db: db, tenantOf: tenantOf}
}

// Migrate creates or updates the documents table and assigns a tenant to
// rows written before their path resolved to one.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&Document{}); err != nil {
		return err
	}
	var rows []Document
	if err := s.db.Select("id", "collection_path", "doc_id").Where("tenant_id = ?", "").Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		tenant := s.tenantOf(Join(row.CollectionPath, row.DocId))
		if tenant == "" {
			continue
		}
		if err := s.db.Model(&Document{}).Where("id = ?", row.ID).Update("tenant_id", tenant).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) List(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	c, err := checkCollection(collection)
	if err != nil {
		return nil, err
	}
	dbCtx := s.db.WithContext(ctx).Model(&Document{}).Where("collection_path = ?", c)
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return nil, fmt.Errorf("invalid filter field %q", f.Field)
		}
		dbCtx = dbCtx.Where("JSON_UNQUOTE(JSON_EXTRACT(data, ?)) = ?", "$."+f.Field, sqlText(f.Value))
	}
	var rows []Document
	if err := dbCtx.Order("doc_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(rows))
	for i := range rows {
		snap, err := rowSnapshot(&rows[i])
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	// Filtering again in memory keeps numeric/string semantics equal to
	// the embedded backend.
	return applyQuery(snaps, q), nil
}

func (s *GormStore) Get(ctx context.Context, path string) (*Snapshot, error) {
	c, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	var row Document
	err = s.db.WithContext(ctx).Where("collection_path = ? AND doc_id = ?", c, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rowSnapshot(&row)
}

func (s *GormStore) Create(ctx context.Context, collection string, data Record) (string, error) {
	c, err := checkCollection(collection)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(resolve(data, time.Now()))
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	row := Document{
		CollectionPath: c,
		DocId:          id,
		TenantId:       s.tenantOf(Join(c, id)),
		Data:           string(raw),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.DocId, nil
}

func (s *GormStore) Set(ctx context.Context, path string, data Record) error {
	return s.BatchWrite(ctx, []Write{{Path: path, Data: data}})
}

func (s *GormStore) Update(ctx context.Context, path string, data Record) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.apply(tx, Write{Path: path, Data: data, Merge: true}, time.Now(), true)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, path string) error {
	return s.BatchWrite(ctx, []Write{{Path: path, Delete: true}})
}

func (s *GormStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			if _, err := s.apply(tx, w, now, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// apply performs one write inside tx and reports whether the document
// existed beforehand. With mustExist, a missing document is left untouched.
func (s *GormStore) apply(tx *gorm.DB, w Write, now time.Time, mustExist bool) (bool, error) {
	c, id, err := SplitPath(w.Path)
	if err != nil {
		return false, err
	}
	if w.Delete {
		err := tx.Where("collection_path = ? AND doc_id = ?", c, id).Delete(&Document{}).Error
		return true, err
	}

	var existing Document
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection_path = ? AND doc_id = ?", c, id).
		First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if !found && mustExist {
		return false, nil
	}

	data := resolve(w.Data, now)
	if found && w.Merge {
		var old Record
		if err := json.Unmarshal([]byte(existing.Data), &old); err != nil {
			return true, err
		}
		data = merge(old, data)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return found, err
	}

	if found {
		err = tx.Model(&Document{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"data":       string(raw),
			"updated_at": now,
		}).Error
		return true, err
	}
	row := Document{
		CollectionPath: c,
		DocId:          id,
		TenantId:       s.tenantOf(w.Path),
		Data:           string(raw),
	}
	return false, tx.Create(&row).Error
}

func rowSnapshot(row *Document) (*Snapshot, error) {
	var data Record
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", row.CollectionPath, row.DocId, err)
	}
	if data == nil {
		data = Record{}
	}
	return &Snapshot{
		ID:         row.DocId,
		Path:       Join(row.CollectionPath, row.DocId),
		Data:       data,
		CreateTime: row.CreatedAt,
		UpdateTime: row.UpdatedAt,
	}, nil
}
