// internal/service/inventory/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/service/inventory/domain"
)

// GormStockRepository 是 StockRepository 的 GORM 实现
type GormStockRepository struct {
	db *gorm.DB
}

func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

var _ domain.StockRepository = (*GormStockRepository)(nil)

func (r *GormStockRepository) FindBySKU(ctx context.Context, sku string) (*domain.StockItem, error) {
	var model StockItemModel
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStockItemNotFound
		}
		return nil, errors.Wrapf(err, "failed to load stock item %s", sku)
	}
	return toDomainStockItem(&model), nil
}

func (r *GormStockRepository) Save(ctx context.Context, item *domain.StockItem) error {
	err := r.db.WithContext(ctx).Save(toStockItemModel(item)).Error
	return errors.Wrapf(err, "failed to save stock item %s", item.SKU)
}

func (r *GormStockRepository) List(ctx context.Context) ([]*domain.StockItem, error) {
	var models []StockItemModel
	if err := r.db.WithContext(ctx).Order("sku").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list stock items")
	}
	items := make([]*domain.StockItem, 0, len(models))
	for i := range models {
		items = append(items, toDomainStockItem(&models[i]))
	}
	return items, nil
}

// GormReservationRepository 是 ReservationRepository 的 GORM 实现
type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

var _ domain.ReservationRepository = (*GormReservationRepository)(nil)

func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.findOne(ctx, "reservation_id = ?", id.String())
}

func (r *GormReservationRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Reservation, error) {
	return r.findOne(ctx, "order_id = ?", orderID.String())
}

func (r *GormReservationRepository) findOne(ctx context.Context, query string, arg string) (*domain.Reservation, error) {
	var model ReservationModel
	err := r.db.WithContext(ctx).Preload("Lines").Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReservationNotFound
		}
		return nil, errors.Wrap(err, "failed to load reservation")
	}
	return toDomainReservation(&model), nil
}

func (r *GormReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	var models []ReservationModel
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status = ? AND expires_at <= ?", string(domain.ReservationActive), now).
		Order("expires_at").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load expired reservations")
	}
	out := make([]*domain.Reservation, 0, len(models))
	for i := range models {
		out = append(out, toDomainReservation(&models[i]))
	}
	return out, nil
}

func (r *GormReservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	model := toReservationModel(reservation)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := model.Lines
		model.Lines = nil
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		// 行在创建后不可变，重复保存时跳过已存在的行
		if len(lines) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "failed to save reservation %s", reservation.ReservationID)
}

// GormMovementRepository 是 MovementRepository 的 GORM 实现
type GormMovementRepository struct {
	db *gorm.DB
}

func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

var _ domain.MovementRepository = (*GormMovementRepository)(nil)

func (r *GormMovementRepository) Record(ctx context.Context, m *domain.StockMovement) error {
	err := r.db.WithContext(ctx).Create(toMovementModel(m)).Error
	return errors.Wrap(err, "failed to record stock movement")
}
