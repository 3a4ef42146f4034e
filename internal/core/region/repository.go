package region

import "context"

// Repository は行政区参照データの読み取りを行うインターフェースです。
type Repository interface {
	FindByCode(ctx context.Context, level Level, code string) (*Region, error)
	ListChildren(ctx context.Context, level Level, parentCode string) ([]*Region, error)
}
