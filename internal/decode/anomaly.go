package decode

// Anomaly is a recorded, non-fatal deviation from the expected data shape.
// It never aborts processing of the listing it belongs to.
type Anomaly struct {
	ListingID string `json:"listing_id"`
	Kind      Kind   `json:"kind"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

// AnomalyFromError classifies err into an anomaly for the given listing.
// Unclassified errors are reported as malformed.
func AnomalyFromError(listingID, field string, err error) Anomaly {
	kind := KindOf(err)
	if kind == "" {
		kind = KindMalformed
	}
	if f := FieldOf(err); f != "" {
		field = f
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Anomaly{ListingID: listingID, Kind: kind, Field: field, Message: msg}
}

// WithListing returns a copy of anomalies stamped with listingID.
func WithListing(listingID string, in []Anomaly) []Anomaly {
	if len(in) == 0 {
		return nil
	}
	out := make([]Anomaly, len(in))
	for i, a := range in {
		a.ListingID = listingID
		out[i] = a
	}
	return out
}
