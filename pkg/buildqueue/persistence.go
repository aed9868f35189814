package buildqueue

import (
	"bufio"
	"log"
	"os"
)

// Save dumps the full display name of every queued item (any stage) to
// path, one per line, per spec.md §4.8. Best-effort: an I/O failure is
// logged and swallowed, matching the teacher's log-and-continue style
// used throughout its background loops.
func (q *Queue) Save(path string) {
	names := q.queuedNames()

	f, err := os.Create(path)
	if err != nil {
		log.Printf("buildqueue: save %s failed: %v", path, err)
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, name := range names {
		if _, err := w.WriteString(name + "\n"); err != nil {
			log.Printf("buildqueue: save %s failed: %v", path, err)
			return
		}
	}
	if err := w.Flush(); err != nil {
		log.Printf("buildqueue: save %s failed: %v", path, err)
	}
}

func (q *Queue) queuedNames() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, 0, len(q.waitingList)+len(q.blocked)+q.buildable.len())
	for _, it := range q.waitingList {
		names = append(names, it.Task.FullDisplayName())
	}
	for _, it := range q.blocked {
		names = append(names, it.Task.FullDisplayName())
	}
	for _, it := range q.buildable.all() {
		names = append(names, it.Task.FullDisplayName())
	}
	return names
}

// Load reads path, schedules each name that still resolves to a known
// task (via the environment's ResolveTask) with the given default quiet
// period, then deletes the file. Missing files, unresolvable names, and
// I/O errors are all logged and otherwise ignored (spec.md §7).
func (q *Queue) Load(path string, defaultQuietPeriod func() (quietPeriodSeconds int)) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("buildqueue: load %s failed: %v", path, err)
		}
		return
	}

	scanner := bufio.NewScanner(f)
	var names []string
	for scanner.Scan() {
		name := scanner.Text()
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("buildqueue: load %s failed reading: %v", path, err)
	}
	f.Close()

	for _, name := range names {
		task := q.env.ResolveTask(name)
		if task == nil {
			log.Printf("buildqueue: load %s: skipping unknown task %q", path, name)
			continue
		}
		seconds := 0
		if defaultQuietPeriod != nil {
			seconds = defaultQuietPeriod()
		}
		q.Add(task, secondsToDuration(seconds))
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("buildqueue: load %s: failed to remove after load: %v", path, err)
	}
}
