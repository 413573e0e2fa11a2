package webhook

import "strconv"

func roomForID(prefix string, id int64) string {
	return prefix + ":" + strconv.FormatInt(id, 10)
}
