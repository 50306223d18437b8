// Package panic wraps a unit of work with a recover handler, so one bad
// disk image cannot take down a whole batch run.
package panic

func Do(action func(), handler func(r interface{})) {

	defer func() {
		if r := recover(); r != nil {
			handler(r)
		}
	}()

	action()

}
