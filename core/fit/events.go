package fit

import (
	"fmt"

	"github.com/evokedbci/evoked/schema"
)

// Event-type labels understood by ExpandEvents.
const (
	EventRisingEdge  = "re"  // stimulus turned on
	EventFallingEdge = "fe"  // stimulus turned off
	EventFlash       = "fl"  // stimulus is on
	EventAny         = "any" // stimulus level changed
)

// ExpandEvents turns a raw stimulus tensor (trial, sample, output) into
// binary event indicators (trial, sample, output, event), one event channel
// per label. A tensor that is already 4-d is passed through untouched, and an
// empty label list keeps the raw stimulus level as a single event channel.
func ExpandEvents(y *schema.Tensor, evtlabs []string) (*schema.Tensor, error) {
	if y.NDim() == 4 {
		return y, nil
	}
	if y.NDim() != 3 {
		return nil, fmt.Errorf("stimulus tensor must be 3-d or 4-d, got %d-d", y.NDim())
	}
	nTrials, nSamples, nOutputs := y.Shape[0], y.Shape[1], y.Shape[2]

	if len(evtlabs) == 0 {
		out := schema.NewTensor(nTrials, nSamples, nOutputs, 1)
		copy(out.Data, y.Data)
		return out, nil
	}

	out := schema.NewTensor(nTrials, nSamples, nOutputs, len(evtlabs))
	for e, lab := range evtlabs {
		for t := 0; t < nTrials; t++ {
			for s := 0; s < nSamples; s++ {
				for o := 0; o < nOutputs; o++ {
					cur := y.At(t, s, o)
					prev := 0.0
					if s > 0 {
						prev = y.At(t, s-1, o)
					}
					var v float64
					switch lab {
					case EventRisingEdge:
						if cur > prev {
							v = 1
						}
					case EventFallingEdge:
						if cur < prev {
							v = 1
						}
					case EventFlash:
						if cur != 0 {
							v = 1
						}
					case EventAny:
						if cur != prev {
							v = 1
						}
					default:
						return nil, fmt.Errorf("unknown event label %q", lab)
					}
					out.Set(v, t, s, o, e)
				}
			}
		}
	}
	return out, nil
}
