package domain

// OrderBook es el libro de órdenes de un contrato de eventos. Precios en 0-1.
type OrderBook struct {
	MarketID string      `json:"market_id,omitempty"`
	Bids     []BookEntry `json:"bids"` // ordenados mayor a menor precio
	Asks     []BookEntry `json:"asks"` // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint devuelve el punto medio entre best bid y best ask.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// Spread devuelve el spread del book (ask - bid).
func (ob OrderBook) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// DepthWithin calcula el volumen total de órdenes (bids + asks) en contratos
// dentro de una distancia dada respecto al midpoint.
func (ob OrderBook) DepthWithin(maxDistance float64) float64 {
	return ob.sumWithin(maxDistance, func(e BookEntry) float64 { return e.Size })
}

// NotionalWithin calcula el valor (size × price) de las órdenes dentro de una
// distancia dada respecto al midpoint. Es la profundidad que usa el scorer.
func (ob OrderBook) NotionalWithin(maxDistance float64) float64 {
	return ob.sumWithin(maxDistance, func(e BookEntry) float64 { return e.Size * e.Price })
}

// Notional es el valor total del libro en ambos lados.
func (ob OrderBook) Notional() float64 {
	var total float64
	for _, b := range ob.Bids {
		total += b.Size * b.Price
	}
	for _, a := range ob.Asks {
		total += a.Size * a.Price
	}
	return total
}

func (ob OrderBook) sumWithin(maxDistance float64, value func(BookEntry) float64) float64 {
	mid := ob.Midpoint()
	if mid == 0 {
		return 0
	}
	var total float64
	for _, b := range ob.Bids {
		if mid-b.Price <= maxDistance {
			total += value(b)
		}
	}
	for _, a := range ob.Asks {
		if a.Price-mid <= maxDistance {
			total += value(a)
		}
	}
	return total
}
