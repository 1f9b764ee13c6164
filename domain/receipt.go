package domain

import "github.com/samber/lo"

// Receipt is what the router hands back once every recipient outcome is known.
type Receipt struct {
	Entry      Entry
	Deliveries []Delivery
}

func (r Receipt) Delivered() []Delivery {
	return lo.Filter(r.Deliveries, func(d Delivery, _ int) bool {
		return d.Status == Delivered
	})
}

func (r Receipt) Failed() []Delivery {
	return lo.Filter(r.Deliveries, func(d Delivery, _ int) bool {
		return d.Status == Failed
	})
}

func (r Receipt) Recipients() []UserID {
	return lo.Map(r.Deliveries, func(d Delivery, _ int) UserID {
		return d.Recipient
	})
}
