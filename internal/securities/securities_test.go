package securities

import (
	"errors"
	"testing"

	"github.com/boursa/brokerage-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&types.Security{}, &types.CouponRate{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return NewService(db)
}

func TestCreateAndGetSecurity(t *testing.T) {
	service := setupTestService(t)

	security := &types.Security{
		Issuer:     "Sonatrach",
		Code:       "STH26",
		ISINCode:   "DZ0000000042",
		FaceValue:  10000,
		Quantity:   1000,
		Type:       types.SecurityTypeSukuk,
		MarketType: types.MarketPrimary,
		CouponSchedule: []types.CouponRate{
			{Year: 1, Rate: 0.0325},
			{Year: 2, Rate: 0.035},
		},
	}
	if err := service.CreateSecurity(security); err != nil {
		t.Fatalf("CreateSecurity failed: %v", err)
	}
	if security.SecurityID == "" {
		t.Fatal("expected security id to be assigned")
	}

	fetched, err := service.GetSecurity(security.SecurityID)
	if err != nil {
		t.Fatalf("GetSecurity failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected the security to be found")
	}
	if fetched.Issuer != "Sonatrach" || fetched.Type != types.SecurityTypeSukuk {
		t.Errorf("unexpected security: %+v", fetched)
	}
	if len(fetched.CouponSchedule) != 2 {
		t.Fatalf("expected 2 coupon rows, got %d", len(fetched.CouponSchedule))
	}
	if fetched.CouponSchedule[0].Rate != 0.0325 {
		t.Errorf("unexpected first coupon rate: %v", fetched.CouponSchedule[0].Rate)
	}
}

func TestCreateSecurity_RejectsUnknownType(t *testing.T) {
	service := setupTestService(t)

	err := service.CreateSecurity(&types.Security{
		Issuer:     "Biopharm",
		Type:       "warrant",
		MarketType: types.MarketSecondary,
	})
	if !errors.Is(err, ErrUnknownSecurityType) {
		t.Errorf("expected ErrUnknownSecurityType, got %v", err)
	}

	err = service.CreateSecurity(&types.Security{
		Issuer:     "Biopharm",
		Type:       types.SecurityTypeAction,
		MarketType: "X",
	})
	if !errors.Is(err, ErrUnknownMarket) {
		t.Errorf("expected ErrUnknownMarket, got %v", err)
	}
}

func TestListSecurities_Filters(t *testing.T) {
	service := setupTestService(t)

	seed := []*types.Security{
		{Issuer: "Biopharm", Type: types.SecurityTypeAction, MarketType: types.MarketSecondary},
		{Issuer: "Saidal", Type: types.SecurityTypeAction, MarketType: types.MarketSecondary},
		{Issuer: "Tresor", Type: types.SecurityTypeObligation, MarketType: types.MarketPrimary, Government: true},
	}
	for _, s := range seed {
		if err := service.CreateSecurity(s); err != nil {
			t.Fatalf("CreateSecurity failed: %v", err)
		}
	}

	all, err := service.ListSecurities("", "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 securities, got %d (err %v)", len(all), err)
	}

	actions, err := service.ListSecurities(types.SecurityTypeAction, "")
	if err != nil || len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d (err %v)", len(actions), err)
	}

	primary, err := service.ListSecurities("", types.MarketPrimary)
	if err != nil || len(primary) != 1 {
		t.Fatalf("expected 1 primary-market security, got %d (err %v)", len(primary), err)
	}
	if primary[0].Issuer != "Tresor" {
		t.Errorf("unexpected primary-market security: %+v", primary[0])
	}

	if _, err := service.ListSecurities("warrant", ""); !errors.Is(err, ErrUnknownSecurityType) {
		t.Errorf("expected ErrUnknownSecurityType, got %v", err)
	}
}

func TestUpdateSecurity_ReplacesCouponSchedule(t *testing.T) {
	service := setupTestService(t)

	security := &types.Security{
		Issuer:     "Tresor",
		FaceValue:  1000,
		Quantity:   500,
		Type:       types.SecurityTypeObligation,
		MarketType: types.MarketPrimary,
		CouponSchedule: []types.CouponRate{
			{Year: 1, Rate: 0.03},
		},
	}
	if err := service.CreateSecurity(security); err != nil {
		t.Fatalf("CreateSecurity failed: %v", err)
	}

	updated, err := service.UpdateSecurity(security.SecurityID, &types.Security{
		Issuer:    "Tresor",
		FaceValue: 1000,
		Quantity:  400,
		CouponSchedule: []types.CouponRate{
			{Year: 1, Rate: 0.035},
			{Year: 2, Rate: 0.04},
		},
	})
	if err != nil {
		t.Fatalf("UpdateSecurity failed: %v", err)
	}
	if updated.Quantity != 400 {
		t.Errorf("expected quantity 400, got %d", updated.Quantity)
	}

	fetched, _ := service.GetSecurity(security.SecurityID)
	if len(fetched.CouponSchedule) != 2 {
		t.Fatalf("expected the schedule replaced with 2 rows, got %d", len(fetched.CouponSchedule))
	}

	if _, err := service.UpdateSecurity("missing", &types.Security{}); !errors.Is(err, ErrSecurityNotFound) {
		t.Errorf("expected ErrSecurityNotFound, got %v", err)
	}
}

func TestDeleteSecurity(t *testing.T) {
	service := setupTestService(t)

	security := &types.Security{
		Issuer:     "Saidal",
		Type:       types.SecurityTypeAction,
		MarketType: types.MarketSecondary,
	}
	if err := service.CreateSecurity(security); err != nil {
		t.Fatalf("CreateSecurity failed: %v", err)
	}

	if err := service.DeleteSecurity(security.SecurityID); err != nil {
		t.Fatalf("DeleteSecurity failed: %v", err)
	}

	fetched, err := service.GetSecurity(security.SecurityID)
	if err != nil {
		t.Fatalf("GetSecurity failed: %v", err)
	}
	if fetched != nil {
		t.Error("expected the security to be gone")
	}
}
