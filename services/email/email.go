package emailsvc

import "github.com/trezcool/attendance/core"

// Wait blocks until svc has handled every message it was given, for services that send asynchronously.
func Wait(svc core.EmailService) {
	if w, ok := svc.(interface{ Wait() }); ok {
		w.Wait()
	}
}
