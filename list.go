package cotask

// listNode is an intrusive doubly-linked list node embedded in the task
// record. A node tracks the list that holds it, which makes "remove this
// task from whatever queue it is on" an O(1) operation with no allocation.
//
// Each task embeds three nodes: one for the run queue or a single wait
// queue (these are mutually exclusive), one for the timer queue, and one
// for the scheduler's registry of live tasks.
type listNode struct {
	prev, next *listNode
	list       *taskList
	task       *Task
}

// unlink removes the node from its list, if any. Safe to call on an
// unlinked node.
func (n *listNode) unlink() {
	l := n.list
	if l == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	n.list = nil
	l.size--
}

// taskList is a FIFO queue of tasks threaded through intrusive nodes.
// The zero value is an empty list.
//
// Thread Safety: NOT thread-safe; mutated only from the scheduler's
// execution context.
type taskList struct {
	head, tail *listNode
	size       int
}

// empty returns true if the list has no nodes.
func (l *taskList) empty() bool {
	return l.head == nil
}

// len returns the number of nodes on the list.
func (l *taskList) len() int {
	return l.size
}

// front returns the task at the head of the list without removing it, or
// nil if the list is empty.
func (l *taskList) front() *Task {
	if l.head == nil {
		return nil
	}
	return l.head.task
}

// frontNode returns the head node, or nil.
func (l *taskList) frontNode() *listNode {
	return l.head
}

// pushBack appends the node at the tail. The node must not be on any list.
func (l *taskList) pushBack(n *listNode) {
	if n.list != nil {
		panic("cotask: node is already on a list")
	}
	n.list = l
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.size++
}

// insertAfter links n immediately after at, which must be on this list.
// Passing a nil at inserts at the head.
func (l *taskList) insertAfter(n, at *listNode) {
	if n.list != nil {
		panic("cotask: node is already on a list")
	}
	n.list = l
	if at == nil {
		n.prev = nil
		n.next = l.head
		if l.head != nil {
			l.head.prev = n
		} else {
			l.tail = n
		}
		l.head = n
	} else {
		n.prev = at
		n.next = at.next
		if at.next != nil {
			at.next.prev = n
		} else {
			l.tail = n
		}
		at.next = n
	}
	l.size++
}

// popFront removes and returns the task at the head of the list, or nil if
// the list is empty.
func (l *taskList) popFront() *Task {
	n := l.head
	if n == nil {
		return nil
	}
	n.unlink()
	return n.task
}
