package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// List 返回全部车辆，created_at 倒序（最新的在前）。
func (r *Repo) List(ctx context.Context) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	if err := db.Order("created_at DESC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repo) Insert(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(v).Error; err != nil {
		return err
	}
	// 回读拿数据库写入的时间戳。
	var latest Vehicle
	if err := db.Where("id = ?", v.ID).First(&latest).Error; err == nil {
		*v = latest
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// Update 整行保存并回读。
func (r *Repo) Update(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Save(v).Error; err != nil {
		return err
	}
	var latest Vehicle
	if err := db.Where("id = ?", v.ID).First(&latest).Error; err == nil {
		*v = latest
	}
	return nil
}

// Delete 按 id 硬删除；记录不存在返回 gorm.ErrRecordNotFound。
func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Where("id = ?", id).Delete(&Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendImageURL 在行锁事务里把 URL 追加到 image_urls，
// 避免并发上传互相覆盖（last-writer-wins 丢更新）。
func (r *Repo) AppendImageURL(ctx context.Context, id, url string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var v Vehicle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&v).Error; err != nil {
			return err
		}
		if v.ImageURLs.Contains(url) {
			return nil
		}
		urls := append(v.ImageURLs, url)
		return tx.Model(&Vehicle{}).Where("id = ?", id).
			Update("image_urls", urls).Error
	})
}

// RemoveImageURL 在行锁事务里按值精确删除 URL。
func (r *Repo) RemoveImageURL(ctx context.Context, id, url string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var v Vehicle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&v).Error; err != nil {
			return err
		}
		urls := make(ImageURLs, 0, len(v.ImageURLs))
		for _, u := range v.ImageURLs {
			if u != url {
				urls = append(urls, u)
			}
		}
		if len(urls) == len(v.ImageURLs) {
			return nil
		}
		return tx.Model(&Vehicle{}).Where("id = ?", id).
			Update("image_urls", urls).Error
	})
}
