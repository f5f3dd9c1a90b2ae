package auction

// FirstPrice selects the highest-fee bid. Ties keep the earlier bid, so the
// arrival order at the auction breaks equal fees.
type FirstPrice struct {
	best *Bid
}

// Consider offers a bid to the rule.
func (r *FirstPrice) Consider(bid *Bid) {
	if r.best == nil || bid.Fee.Gt(r.best.Fee) {
		r.best = bid
	}
}

// Winner returns the best bid seen so far, or nil if none were offered.
func (r *FirstPrice) Winner() *Bid { return r.best }
