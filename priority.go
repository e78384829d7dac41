package goschedkit

// priority.go implements the priority engine of spec §4.E: donation
// protocol, effective-priority recomputation, and the set_priority /
// yield_if_higher entry points. Donation is only meaningful in non-MLFQS
// mode (spec §3: "thread_mlfqs ⇒ donation engine is inert").
//
// Callers must hold Kernel.big (the simulated interrupts-disabled
// section) for every function here, matching spec §5's "every mutator of
// ... donation lists ... runs with interrupts disabled."

// MaxDonationChainDepth defensively bounds the donor-chain walk. spec §8
// requires chains of depth >= 8 to terminate; real lock-wait graphs in
// this kernel are acyclic by construction (a thread cannot wait on a lock
// it holds), so this is a corruption backstop, not a realistic ceiling.
const MaxDonationChainDepth = 64

// donatePriority walks the lock-holder chain starting at waiter, who is
// about to block on lock, donating waiter's (and transitively, each
// intermediate holder's) priority up the chain. Implements spec §4.E's
// numbered donation protocol.
func (k *Kernel) donatePriority(waiter *Thread, lock *Lock) {
	waiter.waitingOn = lock
	t := waiter
	for depth := 0; ; depth++ {
		if depth > MaxDonationChainDepth {
			halt(k.log, ReasonInvariant, "donation chain exceeded depth %d; lock-wait graph likely cyclic", MaxDonationChainDepth)
		}
		t.priority = t.effectivePriority()
		if t.waitingOn == nil {
			return
		}
		holder := t.waitingOn.holder
		if holder == nil {
			return
		}
		// Remove any existing donation token before reinserting, so a
		// donor already donating elsewhere (or previously donating to
		// this same holder at a stale priority) is correctly reordered.
		removeDonationToken(t)
		t.donationElem = holder.donations.PushFront(t)
		t.donationHolder = holder
		reorderDonations(holder)
		holder.priority = holder.effectivePriority()
		k.logDonation(t, holder)
		if holder.Status() == StatusReady {
			k.ready.fix(holder)
		}
		t = holder
	}
}

// removeDonationToken detaches t's donation membership token from
// whichever donor list currently holds it (tracked via donationHolder).
// Guards against a double remove on an uninitialized (nil) token, per
// spec §4.E's edge case: "a thread whose donation token is none ... must
// not be removed."
func removeDonationToken(t *Thread) {
	if t.donationElem == nil || t.donationHolder == nil {
		t.donationElem = nil
		t.donationHolder = nil
		return
	}
	t.donationHolder.donations.Remove(t.donationElem)
	t.donationElem = nil
	t.donationHolder = nil
}

// reorderDonations re-sorts holder's donation list by descending
// priority after an insert. The list is small in practice (bounded by
// the number of concurrent waiters on one lock), so a simple
// insertion-sort-by-removal is sufficient and keeps the "ordered
// sequence, high->low" invariant from spec §3 without a heap.
func reorderDonations(holder *Thread) {
	items := donationSlice(holder)
	holder.donations.Init()
	// Stable sort by descending priority; re-link tokens in place.
	insertionSortDesc(items)
	for _, th := range items {
		th.donationElem = holder.donations.PushBack(th)
	}
}

func donationSlice(holder *Thread) []*Thread {
	items := make([]*Thread, 0, holder.donations.Len())
	for e := holder.donations.Front(); e != nil; e = e.Next() {
		items = append(items, e.Value.(*Thread))
	}
	return items
}

func insertionSortDesc(items []*Thread) {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && items[j-1].priority < items[j].priority {
			items[j-1], items[j] = items[j], items[j-1]
			j--
		}
	}
}

// recallDonation tears down every donor whose waitingOn is lock, on
// release by holder: per spec §4.E, "every donor whose waiting_on ==
// released_lock has its donation token removed from B.priority_donation;
// B's effective priority is recomputed."
func (k *Kernel) recallDonation(holder *Thread, lock *Lock) {
	var keep []*Thread
	var removed []*Thread
	for e := holder.donations.Front(); e != nil; e = e.Next() {
		donor := e.Value.(*Thread)
		if donor.waitingOn == lock {
			removed = append(removed, donor)
		} else {
			keep = append(keep, donor)
		}
	}
	holder.donations.Init()
	for _, th := range keep {
		th.donationElem = holder.donations.PushBack(th)
	}
	for _, th := range removed {
		th.donationElem = nil
		th.donationHolder = nil
	}
	holder.priority = holder.effectivePriority()
	if holder.Status() == StatusReady {
		k.ready.fix(holder)
	}
}

// recomputePriority recomputes t's effective priority and, if t is
// currently on the ready list, repositions it.
func (k *Kernel) recomputePriority(t *Thread) {
	t.priority = t.effectivePriority()
	if t.Status() == StatusReady {
		k.ready.fix(t)
	}
}

// yieldIfHigher yields the current thread if the head of the ready list
// now outranks it, per spec §4.E. Caller must already hold big (every
// caller does: Create, Unblock, SetPriority, SetNice, Lock.Release); it
// calls the unexported yield(), not the exported Yield(), since Yield
// itself acquires big and would deadlock against an already-held lock.
func (k *Kernel) yieldIfHigher() {
	head := k.ready.peekMax()
	if head != nil && k.current != nil && head.priority > k.current.priority {
		k.yield()
	}
}

func (k *Kernel) logDonation(donor, holder *Thread) {
	k.log.Log(LogEntry{
		Level:    LevelDebug,
		Category: "donation",
		TID:      donor.tid,
		Message:  "donating priority to holder tid=" + itoaTID(holder.tid),
	})
}

func itoaTID(t TID) string {
	if t == 0 {
		return "0"
	}
	neg := t < 0
	if neg {
		t = -t
	}
	var buf [20]byte
	i := len(buf)
	for t > 0 {
		i--
		buf[i] = byte('0' + t%10)
		t /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
