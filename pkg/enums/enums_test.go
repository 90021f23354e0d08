package enums

import "testing"

func TestPaymentStatusOutcomes(t *testing.T) {
	cases := []struct {
		status   PaymentStatus
		success  bool
		failure  bool
		terminal bool
	}{
		{PaymentStatusPending, false, false, false},
		{PaymentStatusCompleted, true, false, true},
		{PaymentStatusSuccess, true, false, true},
		{PaymentStatusFailed, false, true, true},
		{PaymentStatusCancelled, false, true, true},
		{PaymentStatus("processing"), false, false, false},
	}
	for _, tc := range cases {
		if got := tc.status.IsSuccessful(); got != tc.success {
			t.Fatalf("%s IsSuccessful = %v", tc.status, got)
		}
		if got := tc.status.IsFailure(); got != tc.failure {
			t.Fatalf("%s IsFailure = %v", tc.status, got)
		}
		if got := tc.status.IsTerminal(); got != tc.terminal {
			t.Fatalf("%s IsTerminal = %v", tc.status, got)
		}
	}
}

func TestParsePaymentStatus(t *testing.T) {
	got, err := ParsePaymentStatus(" Completed ")
	if err != nil || got != PaymentStatusCompleted {
		t.Fatalf("expected completed, got %q err=%v", got, err)
	}
	if _, err := ParsePaymentStatus("paid"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestOrderStatusLabels(t *testing.T) {
	if got := OrderStatusOutForDelivery.Label(); got != "Out for Delivery" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := OrderStatus("lost").Label(); got != "Pending" {
		t.Fatalf("unknown status should fall back to pending label, got %q", got)
	}
	if OrderStatusCancelled.Step() != -1 || OrderStatusShipped.Step() != 4 {
		t.Fatal("unexpected workflow steps")
	}
}

func TestCanTransitionTracking(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{"", OrderStatusConfirmed, true},
		{"", OrderStatusPending, true},
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusPacked, OrderStatusPacked, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusOutForDelivery, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusReturned, true},
		{OrderStatusShipped, OrderStatusReturned, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusReturned, OrderStatusDelivered, false},
		{OrderStatusPending, OrderStatus("lost"), false},
	}
	for _, tc := range cases {
		if got := CanTransitionTracking(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransitionTracking(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestUserRoleAdminChecks(t *testing.T) {
	if !UserRoleAdmin.IsAdmin() || UserRoleAdmin.IsSuperAdmin() {
		t.Fatal("admin role checks wrong")
	}
	if !UserRoleSuperAdmin.IsAdmin() || !UserRoleSuperAdmin.IsSuperAdmin() {
		t.Fatal("super admin role checks wrong")
	}
	if UserRoleCustomer.IsAdmin() {
		t.Fatal("customer must not be admin")
	}
	if _, err := ParseUserStatus("banned"); err == nil {
		t.Fatal("expected error for unknown user status")
	}
}
