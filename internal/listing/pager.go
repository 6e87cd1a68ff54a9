package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abelbrown/quill/internal/query"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// maxPageNumbers is how many page shortcuts the pager offers at once.
const maxPageNumbers = 5

// Controls describes which pager controls are usable.
type Controls struct {
	Current int
	Total   int
	Prev    bool
	Next    bool
	Numbers []int
	// Beyond is the requested page when it lies past the last one. Current
	// is then the last page and Prev leads to it.
	Beyond int
}

// Pager computes the controls for page current of total. current is
// clamped into range first.
func Pager(current, total int) Controls {
	total = max(total, 1)
	var beyond int
	if current > total {
		beyond = current
	}
	current = query.Clamp(current, total)

	start := max(1, current-2)
	var nums []int
	for i := 0; i < min(maxPageNumbers, total); i++ {
		p := start + i
		if p > total {
			break
		}
		nums = append(nums, p)
	}
	return Controls{
		Current: current,
		Total:   total,
		Prev:    current > 1 || beyond > 0,
		Next:    current < total,
		Numbers: nums,
		Beyond:  beyond,
	}
}

// PrevPage is the page the previous control leads to.
func (c Controls) PrevPage() int {
	if c.Beyond > 0 {
		return c.Current
	}
	return max(1, c.Current-1)
}

// NextPage is the page the next control leads to.
func (c Controls) NextPage() int { return min(c.Total, c.Current+1) }

// Render draws the pager on one line.
func (c Controls) Render() string {
	prev := styles.StatusBarKey.Render("‹ Prev (p)")
	if !c.Prev {
		prev = styles.Disabled.Render("‹ Prev (p)")
	}
	next := styles.StatusBarKey.Render("Next (n) ›")
	if !c.Next {
		next = styles.Disabled.Render("Next (n) ›")
	}

	nums := make([]string, 0, len(c.Numbers))
	for _, n := range c.Numbers {
		if n == c.Current && c.Beyond == 0 {
			nums = append(nums, styles.PageCurrent.Render(strconv.Itoa(n)))
		} else {
			nums = append(nums, styles.PageOther.Render(strconv.Itoa(n)))
		}
	}

	shown := c.Current
	if c.Beyond > 0 {
		shown = c.Beyond
	}
	info := styles.Meta.Render(fmt.Sprintf("Page %d of %d", shown, c.Total))
	return strings.Join([]string{prev, info, strings.Join(nums, ""), next}, "   ")
}
