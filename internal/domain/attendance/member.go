package attendance

// Member is one entry in the prefect roster. The prefect number is the
// stable identifier check-ins are keyed by; the name is optional and only
// carried for display.
type Member struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Role          Role   `json:"role"`
	PrefectNumber string `json:"prefectNumber"`
}

// MemberUpdate is a partial member edit; nil fields keep their value.
type MemberUpdate struct {
	Name          *string `json:"name,omitempty"`
	Role          *Role   `json:"role,omitempty"`
	PrefectNumber *string `json:"prefectNumber,omitempty"`
}

// Apply merges the update over m and returns the result.
func (u MemberUpdate) Apply(m Member) Member {
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Role != nil {
		m.Role = *u.Role
	}
	if u.PrefectNumber != nil {
		m.PrefectNumber = *u.PrefectNumber
	}
	return m
}
