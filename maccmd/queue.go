package maccmd

import "fmt"

// maxFOptsLen is the number of bytes the FOpts field of an FHDR can carry.
const maxFOptsLen = 15

// Queue accumulates outgoing MAC commands destined for FOpts, enforcing the
// 15 byte capacity of the field they will eventually be marshaled into.
type Queue struct {
	uplink  bool
	cmds    []MACCommand
	encoded int
}

// NewQueue returns an empty queue. uplink records the direction of the
// commands it holds; Push size-checks each entry by its marshaled length.
func NewQueue(uplink bool) *Queue {
	return &Queue{uplink: uplink}
}

// Push appends a command to the queue. It returns an error with no mutation
// if the command would overflow the 15 byte FOpts budget.
func (q *Queue) Push(cmd MACCommand) error {
	b, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}
	if q.encoded+len(b) > maxFOptsLen {
		return fmt.Errorf("maccmd: FOpts is full, cannot fit %s (%d bytes)", cmd.CID, len(b))
	}
	q.cmds = append(q.cmds, cmd)
	q.encoded += len(b)
	return nil
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	return len(q.cmds)
}

// Bytes marshals every queued command, in push order, into a single FOpts
// byte slice.
func (q *Queue) Bytes() ([]byte, error) {
	var out []byte
	for _, c := range q.cmds {
		b, err := c.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Drain empties the queue and returns its commands.
func (q *Queue) Drain() []MACCommand {
	cmds := q.cmds
	q.cmds = nil
	q.encoded = 0
	return cmds
}
