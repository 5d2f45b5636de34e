package cafe

import "fmt"

// LineItem is one cart entry. A cart holds at most one LineItem per item ID;
// adding an existing item increments its quantity.
type LineItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Category  string  `json:"category,omitempty"`
}

// Cart is the in-memory order aggregate for one conversation.
type Cart struct {
	lines []LineItem
}

// Add merges quantity into an existing line or appends a new one.
func (c *Cart) Add(item Item, quantity int) {
	for i := range c.lines {
		if c.lines[i].ID == item.ID {
			c.lines[i].Quantity += quantity
			return
		}
	}
	c.lines = append(c.lines, LineItem{
		ID:        item.ID,
		Name:      item.Name,
		Quantity:  quantity,
		UnitPrice: item.Price,
		Category:  item.Category,
	})
}

// Remove deletes the line at index i.
func (c *Cart) Remove(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// SetQuantity reassigns the quantity of the line at index i.
// A quantity of zero or less removes the line.
func (c *Cart) SetQuantity(i, quantity int) {
	if quantity <= 0 {
		c.Remove(i)
		return
	}
	c.lines[i].Quantity = quantity
}

// Lines returns the current line items.
func (c *Cart) Lines() []LineItem {
	return c.lines
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Total is the sum of price times quantity over current line items.
func (c *Cart) Total() float64 {
	total := 0.0
	for _, l := range c.lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Describe renders the cart for speech.
func (c *Cart) Describe() string {
	if len(c.lines) == 0 {
		return "Your cart is empty."
	}
	out := "Your cart has: "
	for i, l := range c.lines {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d x %s", l.Quantity, l.Name)
	}
	return out + fmt.Sprintf(". Total is $%.2f.", c.Total())
}
