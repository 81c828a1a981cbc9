package strategy

import (
	"context"
	"fmt"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/ctxlog"
)

// IntraThenInter partitions candidates into intra-multiplexer pairs (both
// endpoints on one multiplexer) and inter-multiplexer pairs, delegates each
// subset to the inner strategy, and concatenates intra groups before inter
// groups. Intra-group calibrations are cheaper and typically higher fidelity,
// so they complete first and contention is isolated to the cross-multiplexer
// work.
type IntraThenInter struct {
	Inner Strategy
}

func (s *IntraThenInter) Name() string { return "intra_then_inter/" + s.Inner.Name() }

func (s *IntraThenInter) Schedule(ctx context.Context, sc *Context, cands []candidate.Pair) ([]Group, error) {
	var intra, inter []candidate.Pair
	for _, p := range cands {
		if sc.Topo.SameMux(p.Control, p.Target) {
			intra = append(intra, p)
		} else {
			inter = append(inter, p)
		}
	}
	ctxlog.FromContext(ctx).Debug("Partitioned candidates.",
		"intra", len(intra), "inter", len(inter))

	intraGroups, err := s.Inner.Schedule(ctx, sc, intra)
	if err != nil {
		return nil, fmt.Errorf("intra subset: %w", err)
	}
	interGroups, err := s.Inner.Schedule(ctx, sc, inter)
	if err != nil {
		return nil, fmt.Errorf("inter subset: %w", err)
	}
	return append(intraGroups, interGroups...), nil
}
