package voxelvk

//State is the recorded, not yet replayed content of one command buffer. Commands replay in
//insertion order, barriers at their recorded positions.
type State struct {
	Commands []Command
	Barriers []Barrier
}

//Len is the number of recorded commands
func (s *State) Len() int {
	return len(s.Commands)
}

//Empty reports whether there is nothing to replay
func (s *State) Empty() bool {
	return len(s.Commands) == 0 && len(s.Barriers) == 0
}

//Append moves other to the end of s. Barrier positions of other are clamped to its own
//commands and shifted behind the commands already in s.
func (s *State) Append(other *State) {
	if other == nil {
		return
	}
	shift := len(s.Commands)
	for _, b := range other.Barriers {
		b.After = clampPosition(b.After, len(other.Commands)) + shift
		s.Barriers = append(s.Barriers, b)
	}
	s.Commands = append(s.Commands, other.Commands...)
	other.Commands = nil
	other.Barriers = nil
}

//Finish replays every command into sink with barriers interleaved, then drains the state.
func (s *State) Finish(sink CommandSink) {
	barriers := scheduleBarriers(s.Barriers, len(s.Commands))

	next := 0
	for i, cmd := range s.Commands {
		for next < len(barriers) && barriers[next].After <= i {
			barriers[next].replay(sink)
			next++
		}
		cmd.replay(sink)
	}
	for ; next < len(barriers); next++ {
		barriers[next].replay(sink)
	}

	s.Commands = nil
	s.Barriers = nil
}
