package config

// VGG16 returns the network the accelerator was first brought up with: the
// 13 convolution layers of VGG-16 on 224x224 RGB input, followed by three
// fully-connected layers and 1000 classes.
func VGG16() *Network {
	return &Network{
		Name: "vgg16",
		Topology: Topology{
			InputChannels: 3,
			Shape: []int{
				224, 224, 112, 112, 56, 56, 56, 28, 28, 28, 14, 14, 14,
			},
			Channels: []int{
				64, 64, 128, 128, 256, 256, 256, 512, 512, 512, 512, 512, 512,
			},
			Kernel: []int{
				3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
			},
			Pool: []bool{
				false, true, false, true, false, false, true,
				false, false, true, false, false, true,
			},
			FCLayers: []int{4096, 4096, 1000},
			Classes:  1000,
		},
		Tiles: TileConfig{
			InputTile:  32,
			OutputTile: 32,
			WeightShift: WeightShiftTable{
				0: 0,
				1: 2, 2: 2, 4: 2, 5: 2, 6: 2,
				3: 3,
				7: 1, 8: 1, 9: 1, 10: 1, 11: 1, 12: 1,
			},
		},
	}
}
