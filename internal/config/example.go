package config

// ExampleScenario returns a fully populated trajectory scenario with
// every field set to its default, suitable as a starting template.
func ExampleScenario() *Scenario {
	return &Scenario{
		Name: ptrString("example west-east survey"),
		Mode: ptrString(ModeTrajectory),
		Terrain: &TerrainConfig{
			Source:         ptrString(TerrainHills),
			SizeKm:         ptrFloat64(20),
			ResolutionM:    ptrFloat64(2),
			ReliefM:        ptrFloat64(1500),
			Seed:           ptrInt64(42),
			BaseElevationM: ptrFloat64(500),
		},
		Camera: &CameraConfig{
			FocalLengthPx:  ptrFloat64(4000),
			SensorWidthPx:  ptrFloat64(4000),
			SensorHeightPx: ptrFloat64(3000),
		},
		Single: &SingleConfig{
			Position: &[3]float64{302500, 3997500, 2500},
			RollDeg:  ptrFloat64(0),
			PitchDeg: ptrFloat64(-30),
			YawDeg:   ptrFloat64(45),
		},
		Trajectory: &TrajectoryConfig{
			Waypoints: [][2]float64{
				{302000, 4008000},
				{308000, 4008000},
				{308000, 4012000},
				{314000, 4012000},
			},
			AltitudeAGLM:   ptrFloat64(1200),
			PhotoIntervalM: ptrFloat64(500),
			RollDeg:        ptrFloat64(0),
			PitchDeg:       ptrFloat64(-30),
			Yaw:            &Yaw{Auto: true},
		},
		Reference: &ReferenceConfig{
			Mode: ptrString(ReferenceCameraNadir),
		},
		Detections: &DetectionsConfig{
			MaxPerPose:   ptrInt(50),
			RandomSample: ptrBool(false),
			Association:  ptrString(AssociationFixed),
		},
	}
}
