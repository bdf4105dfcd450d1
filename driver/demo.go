package driver

import (
	"io"

	"github.com/luma/cmdmgr/protocol"
)

// DemoMessages exercises every opcode plus the failure paths: an unknown
// opcode, a bad run number and a message without its sentinel.
var DemoMessages = []string{
	"RUN_NO____123#",
	"POLAR_NO__2#",
	"USR_MSG___Start Tunnel#",
	"D_USR_FLD_Parameter1,0.004947,Parameter2,0.203044,#",
	"RUN_NO____124#",
	"POLAR_NO__3#",
	"D_USR_FLD_Parameter3,0.02347,Parameter4,0.12343044,ParameterT,1.12345,#",
	"HISTORY___#",
	"UNKNOWN___test#",
	"RUN_NO____ABC#",
	"RUN_NO____123",
}

const DemoBanner = "Running example Command Manager messages..."

// RunDemo parses every demo message against history, writing to w.
func RunDemo(w io.Writer, history *protocol.History) error {
	if err := protocol.WriteLines(w, DemoBanner, ""); err != nil {
		return err
	}

	for _, msg := range DemoMessages {
		if err := protocol.Parse(w, history, msg); err != nil {
			return err
		}
	}

	return nil
}
