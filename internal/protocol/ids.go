package protocol

// Status result codes.
const (
	StatusOK             uint8 = 0x00
	StatusNotImplemented uint8 = 0x01
	StatusError          uint8 = 0xFF
)

// Simulation control commands.
const (
	CmdGetVersion uint8 = 0x00
	CmdSimStep    uint8 = 0x02
	CmdClose      uint8 = 0x7F
)

// Value retrieval and state change commands.
const (
	CmdGetVehicleVariable      uint8 = 0xa4
	ResponseGetVehicleVariable uint8 = 0xb4
	CmdSetTrafficLightVariable uint8 = 0xc2
	CmdSetVehicleVariable      uint8 = 0xc4
	CmdSetRouteVariable        uint8 = 0xc6
	CmdSetPoiVariable          uint8 = 0xc7
)

// Variable subscription commands and their responses.
const (
	CmdSubscribeInductionLoopVariable      uint8 = 0xd0
	CmdSubscribeTrafficLightVariable       uint8 = 0xd2
	CmdSubscribeVehicleVariable            uint8 = 0xd4
	CmdSubscribeLaneAreaVariable           uint8 = 0xdd
	ResponseSubscribeInductionLoopVariable uint8 = 0xe0
	ResponseSubscribeTrafficLightVariable  uint8 = 0xe2
	ResponseSubscribeVehicleVariable       uint8 = 0xe4
	ResponseSubscribeLaneAreaVariable      uint8 = 0xed
)

// Generic variables.
const (
	VarAdd       uint8 = 0x80
	VarRemove    uint8 = 0x81
	VarAddFull   uint8 = 0x85
	VarParameter uint8 = 0x7e
)

// Detector variables (induction loops and lane area detectors).
const (
	VarLastStepVehicleNumber uint8 = 0x10
	VarLastStepMeanSpeed     uint8 = 0x11
	VarLastStepVehicleIDList uint8 = 0x12
	VarLastStepHaltingNumber uint8 = 0x14
	VarLastStepMeanLength    uint8 = 0x15
	VarLastStepVehicleData   uint8 = 0x17
	VarLength                uint8 = 0x44
)

// Traffic light variables.
const (
	VarTLRedYellowGreenState uint8 = 0x20
	VarTLProgram             uint8 = 0x23
	VarTLCurrentPhase        uint8 = 0x28
	VarTLCurrentProgram      uint8 = 0x29
	VarTLNextSwitch          uint8 = 0x2d
)

// Vehicle variables.
const (
	VarSlope                  uint8 = 0x36
	VarPosition3D             uint8 = 0x39
	VarSpeed                  uint8 = 0x40
	VarPosition               uint8 = 0x42
	VarAngle                  uint8 = 0x43
	VarMinGap                 uint8 = 0x4c
	VarRoadID                 uint8 = 0x50
	VarLaneIndex              uint8 = 0x52
	VarRouteID                uint8 = 0x53
	VarLanePosition           uint8 = 0x56
	VarSignals                uint8 = 0x5b
	VarCO2Emission            uint8 = 0x60
	VarCOEmission             uint8 = 0x61
	VarHCEmission             uint8 = 0x62
	VarPMxEmission            uint8 = 0x63
	VarNOxEmission            uint8 = 0x64
	VarFuelConsumption        uint8 = 0x65
	VarLeader                 uint8 = 0x68
	VarElectricityConsumption uint8 = 0x71
	VarAcceleration           uint8 = 0x72
	VarFollower               uint8 = 0x78
	VarDistance               uint8 = 0x84
	VarSpeedMode              uint8 = 0xb3
	VarStopState              uint8 = 0xb5
	VarLaneChangeMode         uint8 = 0xb6
	VarLateralLanePosition    uint8 = 0xb8
)

// TraCI API levels spoken by supported engine releases.
const (
	API18 = 18
	API19 = 19
	API20 = 20
	API21 = 21

	APILowest  = API18
	APIHighest = API21
)
