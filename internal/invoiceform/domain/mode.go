package domain

type Mode string

const (
	ModeCreate Mode = "create"
	ModeView   Mode = "view"
	ModeEdit   Mode = "edit"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeCreate, ModeView, ModeEdit:
		return true
	default:
		return false
	}
}
