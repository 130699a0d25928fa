package entity

import "time"

type Project struct {
	ID        uint64
	Name      string
	OwnerID   uint64
	CreatedAt time.Time
}

func (p *Project) IsOwnedBy(userID uint64) bool {
	return p.OwnerID == userID
}
