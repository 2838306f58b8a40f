package store

import (
	"context"

	"bountytracker/internal/core"
)

// Ports for sale persistence. Implementations return core.ErrSaleNotFound for
// unknown IDs and core.ErrDuplicateIdentifier when an IMEI is already taken.
type (
	SaleReader interface {
		ListSales(ctx context.Context) ([]core.Sale, error)
		GetSale(ctx context.Context, id string) (core.Sale, error)
	}

	SaleWriter interface {
		CreateSale(ctx context.Context, s core.Sale) error
		UpdateSale(ctx context.Context, s core.Sale) error
		DeleteSale(ctx context.Context, id string) error
	}

	SaleStore interface {
		SaleReader
		SaleWriter
	}
)
