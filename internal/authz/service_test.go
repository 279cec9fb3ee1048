package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc, db
}

func TestBuiltinRolesRefundAccess(t *testing.T) {
	svc, _ := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	cases := []struct {
		role  string
		path  string
		act   string
		allow bool
	}{
		{role: RoleAdmin, path: "/api/v1/admin/payments/chip/refund", act: "post", allow: true},
		{role: RoleFinance, path: "/api/v1/admin/payments/chip/refund", act: "POST", allow: true},
		{role: RoleReadonlyAuditor, path: "/api/v1/admin/payments/chip/refund", act: "POST", allow: false},
		{role: RoleReadonlyAuditor, path: "/api/v1/admin/orders", act: "GET", allow: true},
		{role: "unknown", path: "/api/v1/admin/orders", act: "GET", allow: false},
		{role: "", path: "/api/v1/admin/orders", act: "GET", allow: false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.path, tc.act)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.role, tc.path, err)
		}
		if allow != tc.allow {
			t.Fatalf("role=%s %s %s want allow=%v got %v", tc.role, tc.act, tc.path, tc.allow, allow)
		}
	}
}

func TestBootstrapBuiltinRolesIsIdempotent(t *testing.T) {
	svc, db := setupAuthzServiceTest(t)
	for i := 0; i < 2; i++ {
		if err := svc.BootstrapBuiltinRoles(); err != nil {
			t.Fatalf("bootstrap #%d failed: %v", i, err)
		}
	}
	var count int64
	if err := db.Table(casbinTableName).Count(&count).Error; err != nil {
		t.Fatalf("count rules failed: %v", err)
	}
	// 3 条策略 + 2 条继承关系
	if count != 5 {
		t.Fatalf("expected 5 persisted rules, got %d", count)
	}
}

func TestGrantAndRevokeRolePolicy(t *testing.T) {
	svc, _ := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("support", "/admin/payments/chip/refund", "post"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	policies, err := svc.GetRolePolicies("support")
	if err != nil {
		t.Fatalf("get policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Subject != "role:support" || policies[0].Action != "POST" {
		t.Fatalf("unexpected policies: %+v", policies)
	}

	if err := svc.RevokeRolePolicy("support", "/api/v1/admin/payments/chip/refund", "POST"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, err := svc.EnforceRole("support", "/admin/payments/chip/refund", "POST")
	if err != nil {
		t.Fatalf("enforce failed: %v", err)
	}
	if allow {
		t.Fatalf("expected deny after revoke")
	}
	if err := svc.GrantRolePolicy("support", "/admin/x", " "); err == nil {
		t.Fatalf("expected error for empty action")
	}
}

func TestNormalizeHelpers(t *testing.T) {
	if got := NormalizeObject("api/v1/admin/payments"); got != "/admin/payments" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeObject("/api/v1"); got != "/" {
		t.Fatalf("unexpected root object: %s", got)
	}
	if got, err := NormalizeRole("finance team"); err != nil || got != "role:finance_team" {
		t.Fatalf("unexpected role: %s %v", got, err)
	}
	if _, err := NormalizeRole("role:"); err == nil {
		t.Fatalf("expected error for bare prefix")
	}
}
