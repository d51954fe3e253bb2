package responder

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

const (
	HowToAddOrder    = "To add a PO: go to the Purchase Orders tab, enter PO Number, Amount, pick Vendor from the dropdown, choose Status, then click Add PO. The record saves to purchase_orders."
	HowToEditOrder   = "To edit a PO: in the Purchase Orders tab, click Edit on the row, change the fields, then click Save PO."
	HowToDeleteOrder = "To delete a PO: in the Purchase Orders tab, click Delete on the row. It will remove the record from purchase_orders."
	NoVendors        = "You have no vendors yet. Add one from the Vendors tab."
	NoOrders         = "No purchase orders yet. Add one from the Purchase Orders tab."
	Capabilities     = `I can help with vendors and purchase orders. Try asking: "How do I add a PO?" or "How many vendors do I have?"`
)

const recentLimit = 3

// Respond builds a data-aware canned reply by keyword topic. It never mutates
// its inputs and is deterministic.
func Respond(text string, vendors []contractx.Vendor, orders []contractx.PurchaseOrder) string {
	t := strings.ToLower(text)
	isHow := strings.Contains(t, "how")
	mentionsPO := strings.Contains(t, "po") || strings.Contains(t, "purchase order")

	switch {
	case isHow && mentionsPO && strings.Contains(t, "add"):
		return HowToAddOrder
	case isHow && mentionsPO && containsAny(t, "edit", "update", "revise"):
		return HowToEditOrder
	case isHow && mentionsPO && containsAny(t, "delete", "remove"):
		return HowToDeleteOrder
	case strings.Contains(t, "vendor"):
		return vendorSummary(vendors)
	case mentionsPO:
		return orderSummary(orders)
	case strings.Contains(t, "help") || isHow:
		return usageGuide()
	default:
		return Capabilities
	}
}

func vendorSummary(vendors []contractx.Vendor) string {
	if len(vendors) == 0 {
		return NoVendors
	}
	names := make([]string, 0, recentLimit)
	for _, v := range vendors[:min(recentLimit, len(vendors))] {
		names = append(names, v.Name)
	}
	joined := strings.Join(names, ", ")
	if joined == "" {
		joined = "N/A"
	}
	return fmt.Sprintf("You have %d vendor(s). Recent: %s.", len(vendors), joined)
}

func orderSummary(orders []contractx.PurchaseOrder) string {
	if len(orders) == 0 {
		return NoOrders
	}
	recent := make([]string, 0, recentLimit)
	for _, o := range orders[:min(recentLimit, len(orders))] {
		recent = append(recent, fmt.Sprintf("#%d (%s)", o.PONumber, o.Status.OrDefault()))
	}
	return fmt.Sprintf("You have %d POs. Recent: %s.", len(orders), strings.Join(recent, ", "))
}

func usageGuide() string {
	statuses := make([]string, len(contractx.Statuses))
	for i, s := range contractx.Statuses {
		statuses[i] = string(s)
	}
	return "Use the tabs above: Vendors to add/edit/delete vendors; Purchase Orders to manage POs. Each row has Edit/Delete. Status can be " +
		strings.Join(statuses, "/") + "."
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
