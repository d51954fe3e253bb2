package responder

import (
	"reflect"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

func TestRespondTopics(t *testing.T) {
	t.Parallel()

	vendors := []contractx.Vendor{
		{ID: 1, Name: "Acme"},
		{ID: 2, Name: "Globex"},
		{ID: 3, Name: "Initech"},
		{ID: 4, Name: "Umbrella"},
	}
	orders := []contractx.PurchaseOrder{
		{ID: 7, PONumber: 1003, Status: contractx.StatusReleased},
		{ID: 6, PONumber: 1002},
	}

	tests := []struct {
		name    string
		text    string
		vendors []contractx.Vendor
		orders  []contractx.PurchaseOrder
		want    string
	}{
		{name: "how to add", text: "How do I add a PO?", want: HowToAddOrder},
		{name: "how to edit", text: "how can I update a purchase order", want: HowToEditOrder},
		{name: "how to revise", text: "how to revise po", want: HowToEditOrder},
		{name: "how to delete", text: "How do I remove a PO", want: HowToDeleteOrder},
		{name: "no vendors", text: "how many vendors do I have?", want: NoVendors},
		{
			name:    "vendor summary caps at three",
			text:    "list vendors",
			vendors: vendors,
			want:    "You have 4 vendor(s). Recent: Acme, Globex, Initech.",
		},
		{name: "no orders", text: "show purchase orders", want: NoOrders},
		{
			name:   "order summary defaults status",
			text:   "any POs?",
			orders: orders,
			want:   "You have 2 POs. Recent: #1003 (Released), #1002 (Open).",
		},
		{
			name: "help",
			text: "help",
			want: "Use the tabs above: Vendors to add/edit/delete vendors; Purchase Orders to manage POs. Each row has Edit/Delete. Status can be Open/Released/Closed/Archived.",
		},
		{name: "fallback", text: "what's the weather", want: Capabilities},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Respond(tt.text, tt.vendors, tt.orders); got != tt.want {
				t.Fatalf("Respond(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRespondVendorBeatsOrders(t *testing.T) {
	t.Parallel()

	got := Respond("which vendor has the most POs", nil, []contractx.PurchaseOrder{{PONumber: 1}})
	if got != NoVendors {
		t.Fatalf("Respond() = %q, want vendor branch", got)
	}
}

func TestRespondIsPure(t *testing.T) {
	t.Parallel()

	vendors := []contractx.Vendor{{ID: 1, Name: "Acme"}}
	orders := []contractx.PurchaseOrder{{ID: 1, PONumber: 10, Status: contractx.StatusClosed}}
	vendorsBefore := append([]contractx.Vendor(nil), vendors...)
	ordersBefore := append([]contractx.PurchaseOrder(nil), orders...)

	for _, text := range []string{"vendors?", "my po list", "help", "hello?"} {
		first := Respond(text, vendors, orders)
		second := Respond(text, vendors, orders)
		if first != second {
			t.Fatalf("Respond(%q) not deterministic: %q vs %q", text, first, second)
		}
	}
	if !reflect.DeepEqual(vendors, vendorsBefore) || !reflect.DeepEqual(orders, ordersBefore) {
		t.Fatal("Respond mutated its inputs")
	}
}

func TestCapabilitiesSuggestsQuestions(t *testing.T) {
	t.Parallel()

	if !strings.Contains(Capabilities, "How many vendors do I have?") {
		t.Fatalf("Capabilities = %q", Capabilities)
	}
}
