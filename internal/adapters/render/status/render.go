package status

import "errors"

var ErrBalancesWithoutIdentity = errors.New("balances given for a session without an identity")

// Render lays out the snapshot for a terminal.
func Render(snapshot Snapshot, opts RenderOptions) (string, error) {
	if snapshot.Balances != nil {
		if _, ok := snapshot.State.Identity(); !ok {
			return "", ErrBalancesWithoutIdentity
		}
	}

	return renderView(snapshot, opts, newStyles()), nil
}
